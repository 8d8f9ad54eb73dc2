package server

import (
	"context"
	"fmt"
	"net/http"

	"onionnet/internal/domain"
	"onionnet/internal/services/user"
)

// User serves one user.
type User struct {
	*base

	svc *user.Service
}

// NewUser returns a user server for svc on listenAddress.
func NewUser(listenAddress string, svc *user.Service) *User {
	return &User{
		base: newBase(fmt.Sprintf("user %v", svc.ID()), listenAddress),
		svc:  svc,
	}
}

// Handler returns the user routes.
func (s *User) Handler() http.Handler {
	mux := http.NewServeMux()
	handle(s.service, mux, "GET /status", status)
	handle(s.service, mux, "GET /getLastReceivedMessage", result(s.svc.LastReceivedMessage))
	handle(s.service, mux, "GET /getLastSentMessage", result(s.svc.LastSentMessage))
	handle(s.service, mux, "GET /getLastCircuit", result(s.lastCircuit))
	handle(s.service, mux, "POST /message", s.handleMessage)
	handle(s.service, mux, "POST /sendMessage", s.handleSendMessage)
	return mux
}

// Run serves until ctx is canceled.
func (s *User) Run(ctx context.Context) error {
	log.Tracef("Run %v", s.service)
	defer log.Tracef("Run %v exit", s.service)

	return s.serve(ctx, s.Handler(), nil)
}

func (s *User) lastCircuit() *[]domain.NodeID {
	c := s.svc.LastCircuit()
	if c == nil {
		return nil
	}
	return &c
}

func (s *User) handleMessage(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleMessage %v: %v", s.service, r.RemoteAddr)
	defer log.Tracef("handleMessage %v exit: %v", s.service, r.RemoteAddr)

	var req domain.MessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	s.svc.ReceiveMessage(req.Message)
	writeText(w, http.StatusOK, "success")
}

func (s *User) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	log.Tracef("handleSendMessage %v: %v", s.service, r.RemoteAddr)
	defer log.Tracef("handleSendMessage %v exit: %v", s.service, r.RemoteAddr)

	var req domain.SendMessageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := s.svc.SendMessage(r.Context(), req.Message, req.DestinationUserID); err != nil {
		log.Errorf("%v: %v", s.service, err)
		writeText(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeText(w, http.StatusOK, "success")
}
