package auth

import (
	"encoding/json"
	"errors"
	"net/http"

	e "github.com/gartstein/redflag/internal/registry/errors"
)

// Route is a method and exact path served without a token.
type Route struct {
	Method string
	Path   string
}

// HTTPMiddleware authenticates every request except the public routes.
func HTTPMiddleware(next http.Handler, jwtSecret string, public ...Route) http.Handler {
	open := make(map[Route]bool, len(public))
	for _, r := range public {
		open[r] = true
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if open[Route{Method: r.Method, Path: r.URL.Path}] {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := extractTokenFromHeader(r)
		if err != nil {
			unauthorized(w, err.Error())
			return
		}

		actor, err := ParseActor(tokenString, jwtSecret)
		if err != nil {
			unauthorized(w, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

func extractTokenFromHeader(r *http.Request) (string, error) {
	value := r.Header.Get("Authorization")
	if value == "" {
		return "", errors.New("authorization header required")
	}
	return bearerToken(value)
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"kind":    e.KindUnauthenticated,
		"message": message,
	})
}
