// Package auth guards the admin surface with HTTP Basic authentication.
package auth

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/statusforge/statusforge/internal/server"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Guard verifies admin credentials on protected handlers.
// The password is checked either against a plaintext value (constant-time
// compare) or, when PasswordHash is set, against a bcrypt hash.
type Guard struct {
	username     string
	password     string
	passwordHash string
	logger       *zap.Logger
}

// Config holds the admin credentials.
type Config struct {
	Username     string
	Password     string
	PasswordHash string
}

// New creates a Guard.
func New(cfg Config, logger *zap.Logger) *Guard {
	return &Guard{
		username:     cfg.Username,
		password:     cfg.Password,
		passwordHash: cfg.PasswordHash,
		logger:       logger,
	}
}

// Require wraps a handler so it only runs for authenticated admins.
func (g *Guard) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || !g.verify(user, pass) {
			g.logger.Warn("admin authentication failed",
				zap.String("path", r.URL.Path),
				zap.String("remote", r.RemoteAddr),
			)
			server.Unauthorized(w, "invalid username or password", r.URL.Path)
			return
		}
		next(w, r)
	}
}

// verify checks the supplied credentials. Both comparisons always run so
// response timing does not reveal which field was wrong.
func (g *Guard) verify(user, pass string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(g.username)) == 1

	var passOK bool
	if g.passwordHash != "" {
		passOK = bcrypt.CompareHashAndPassword([]byte(g.passwordHash), []byte(pass)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(pass), []byte(g.password)) == 1
	}

	return userOK && passOK
}

// RegisterRoutes registers the credential-check endpoint.
func (g *Guard) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/auth/verify", g.Require(g.handleVerify))
}

// handleVerify confirms the supplied admin credentials.
func (g *Guard) handleVerify(w http.ResponseWriter, r *http.Request) {
	user, _, _ := r.BasicAuth()
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"authenticated": true,
		"username":      user,
	})
}
