// This is a **mock authentication service**. It issues registry tokens for
// any role so the API can be exercised without an identity provider.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gartstein/redflag/internal/registry/auth"
	"github.com/gartstein/redflag/internal/registry/models"
	"github.com/google/uuid"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

const (
	defaultPort   = "8081"       // Default port for the authentication service
	defaultSecret = "jwt_secret" // Secret for signing JWT
)

// TokenResponse represents the response structure
type TokenResponse struct {
	Token string    `json:"token"`
	Role  string    `json:"role"`
	ID    uuid.UUID `json:"id"`
}

type tokenIssuer struct {
	secret string
	ttl    time.Duration
	logger *zap.Logger
}

// ServeHTTP issues a token for ?role=ADMIN|EMPLOYER|CANDIDATE&id=<uuid>&name=<display name>.
// A missing id gets a fresh one.
func (t *tokenIssuer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	role, err := models.ParseActorRole(q.Get("role"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := uuid.New()
	if raw := q.Get("id"); raw != "" {
		if id, err = uuid.Parse(raw); err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
	}
	actor := models.Actor{Role: role, ID: id, DisplayName: strings.TrimSpace(q.Get("name"))}

	token, err := auth.GenerateToken(actor, t.secret, t.ttl)
	if err != nil {
		t.logger.Error("Failed to generate token", zap.Error(err))
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(TokenResponse{Token: token, Role: string(role), ID: id}); err != nil {
		t.logger.Error("Failed to encode token", zap.Error(err))
	}
}

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	secret := os.Getenv("REDFLAG_JWT_SECRET")
	if secret == "" {
		secret = defaultSecret
	}
	port := pflag.String("port", defaultPort, "listen port")
	pflag.StringVar(&secret, "secret", secret, "HMAC secret shared with the registry")
	ttl := pflag.Duration("ttl", 24*time.Hour, "token lifetime")
	pflag.Parse()

	mux := http.NewServeMux()
	mux.Handle("/token", &tokenIssuer{secret: secret, ttl: *ttl, logger: logger})
	server := &http.Server{Addr: ":" + *port, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	logger.Info("Authentication service running", zap.String("port", *port))
	if err := server.ListenAndServe(); err != nil {
		logger.Fatal("Authentication service stopped", zap.Error(err))
	}
}
