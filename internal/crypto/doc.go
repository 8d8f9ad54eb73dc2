// Package crypto exposes the key codec used by the onion protocol.
//
// Contents
//
//   - RSA-OAEP (2048-bit modulus, SHA-256) key pairs used to wrap the
//     per-hop symmetric key (GenerateKeyPair, AsymmetricEncrypt,
//     AsymmetricDecrypt)
//   - ChaCha20-Poly1305 symmetric keys used to encrypt one layer
//     (GenerateSymmetricKey, SymmetricEncrypt, SymmetricDecrypt)
//   - Import and export of every key kind to base64 text: SPKI for public
//     keys, PKCS#8 for private keys, raw bytes for symmetric keys
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// # Notes
//
// Public, private and symmetric keys are distinct handle types; the import
// functions validate the encoded structure so text of one kind never
// imports as another. Every ciphertext is standard base64 text, which is
// what the layer framing concatenates. Decryption failures of any kind
// wrap domain.ErrDecryption and key failures wrap domain.ErrKey.
package crypto
