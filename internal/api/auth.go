package api

import (
	"encoding/json"
	"net/http"
)

// authResponse is the JSON body for the auth endpoints. ExpiresAt is
// epoch milliseconds, matching what the viewer expects.
type authResponse struct {
	Authenticated bool  `json:"authenticated"`
	ExpiresAt     int64 `json:"expiresAt,omitempty"`
}

// login handles POST /api/auth/login: exchanges the shared password for a
// session cookie.
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Password == "" {
		respondError(w, http.StatusBadRequest, "Password is required")
		return
	}

	if !s.guard.PasswordValid(body.Password) {
		respondError(w, http.StatusUnauthorized, "Invalid password")
		return
	}

	token, expiresAt, err := s.guard.Issue()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to issue session")
		return
	}

	s.guard.SetCookie(w, token, expiresAt)
	respondJSON(w, http.StatusOK, authResponse{
		Authenticated: true,
		ExpiresAt:     expiresAt.UnixMilli(),
	})
}

// authStatus handles GET /api/auth/status. Open: it reports on whatever
// credential the request carries, clearing a stale cookie as a side
// effect.
func (s *Server) authStatus(w http.ResponseWriter, r *http.Request) {
	status := s.guard.StatusFromRequest(r)
	if !status.Authenticated {
		s.guard.ClearCookie(w)
		respondJSON(w, http.StatusOK, authResponse{Authenticated: false})
		return
	}

	respondJSON(w, http.StatusOK, authResponse{
		Authenticated: true,
		ExpiresAt:     status.ExpiresAt.UnixMilli(),
	})
}

// logout handles POST /api/auth/logout: clears the credential
// unconditionally.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.guard.ClearCookie(w)
	respondJSON(w, http.StatusOK, authResponse{Authenticated: false})
}

// refresh handles POST /api/auth/refresh: re-issues a token for a
// still-valid session, extending it without the password. RequireAuth has
// already rejected expired or forged credentials.
func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	token, expiresAt, err := s.guard.Issue()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to refresh session")
		return
	}

	s.guard.SetCookie(w, token, expiresAt)
	respondJSON(w, http.StatusOK, authResponse{
		Authenticated: true,
		ExpiresAt:     expiresAt.UnixMilli(),
	})
}
