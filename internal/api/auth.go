package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// auth validates bearer tokens. With no token configured every request
// passes through.
func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	token := s.cfg.Token
	if token == "" {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		supplied, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(supplied), []byte(token)) != 1 {
			s.writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}
