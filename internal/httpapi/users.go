package httpapi

import (
	"encoding/json"
	"net/http"

	"restaura/internal/store"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	token, err := s.users.Signup(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	token, err := s.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := parseBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing bearer token"})
		return
	}

	if err := s.users.Logout(r.Context(), token); err != nil {
		writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type profileUpdateRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Bio       string `json:"bio"`
	Language  string `json:"language"`
	Currency  string `json:"currency"`
	AvatarURL string `json:"avatarUrl"`
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authedUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := s.users.Profile(r.Context(), userID)
		if err != nil {
			writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut:
		var req profileUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
			return
		}
		user, err := s.users.UpdateProfile(r.Context(), userID, store.ProfileUpdate{
			Name:      req.Name,
			Email:     req.Email,
			Bio:       req.Bio,
			Language:  req.Language,
			Currency:  req.Currency,
			AvatarURL: req.AvatarURL,
		})
		if err != nil {
			writeJSON(w, statusForError(err), errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, user)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
