package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/agenda/internal/server/auth"
	"github.com/dmitrijs2005/agenda/internal/server/services"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyTokenRequest struct {
	Token string `json:"token"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	user, token, err := s.users.Register(r.Context(), req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusCreated, map[string]any{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	user, token, err := s.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"user":    user,
		"token":   token,
	})
}

// handleVerifyToken checks a token supplied in the body. An invalid or stale
// token is a normal 200 answer with valid=false, not an error: the endpoint
// exists so clients can probe their stored token on startup.
func (s *Server) handleVerifyToken(w http.ResponseWriter, r *http.Request) {
	var req verifyTokenRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if req.Token == "" {
		s.respondError(w, r, http.StatusBadRequest, "token is required")
		return
	}

	claims, err := auth.ParseToken(req.Token, s.jwtSecret)
	if err != nil {
		s.respondJSON(w, r, http.StatusOK, map[string]any{"success": false, "valid": false})
		return
	}

	user, err := s.users.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		s.respondJSON(w, r, http.StatusOK, map[string]any{"success": false, "valid": false})
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"valid":   true,
		"user":    user,
	})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetProfile(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"success": true, "user": user})
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateProfileRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	user, err := s.users.UpdateProfile(r.Context(), userIDFromContext(r.Context()), req)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"success": true, "user": user})
}

func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	if err := s.users.DeleteAccount(r.Context(), userIDFromContext(r.Context())); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	err := s.users.ChangePassword(r.Context(), userIDFromContext(r.Context()), req.CurrentPassword, req.NewPassword)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.users.Stats(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"success": true, "stats": stats})
}

func (s *Server) handlePresignAvatarUpload(w http.ResponseWriter, r *http.Request) {
	key, url, err := s.users.PresignAvatarUpload(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{
		"success":   true,
		"key":       key,
		"uploadUrl": url,
	})
}

func (s *Server) handleAvatarURL(w http.ResponseWriter, r *http.Request) {
	url, err := s.users.AvatarURL(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	s.respondJSON(w, r, http.StatusOK, map[string]any{"success": true, "url": url})
}
