package gateway

import (
	"crypto/subtle"

	"canvasd/internal/domain"
)

// ClientInfo holds metadata about an authenticated gateway client.
type ClientInfo struct {
	Name string
}

// Authenticator validates incoming gateway connections.
type Authenticator interface {
	Authenticate(token string) (*ClientInfo, error)
}

// StaticTokenAuth authenticates clients against a single shared token
// using constant-time comparison to prevent timing attacks.
type StaticTokenAuth struct {
	token []byte
}

// NewStaticTokenAuth builds an authenticator for the given token.
func NewStaticTokenAuth(token string) *StaticTokenAuth {
	return &StaticTokenAuth{token: []byte(token)}
}

// Authenticate returns client info if the token is valid.
func (s *StaticTokenAuth) Authenticate(token string) (*ClientInfo, error) {
	if subtle.ConstantTimeCompare([]byte(token), s.token) == 1 {
		return &ClientInfo{Name: "ui"}, nil
	}
	return nil, domain.ErrGatewayAuthFailed
}

// OpenAuth accepts every connection. Used when the gateway binds to
// loopback only and the browser UI runs on the same host.
type OpenAuth struct{}

// Authenticate always succeeds.
func (OpenAuth) Authenticate(string) (*ClientInfo, error) {
	return &ClientInfo{Name: "local"}, nil
}
