// Package domain defines the core data models, collaborator interfaces and
// error taxonomy shared by the directory, routers and users.
package domain
