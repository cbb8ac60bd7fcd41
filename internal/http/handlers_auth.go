package http

import (
	"log/slog"
	"net/http"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAuthError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		MessageResponse(http.StatusBadRequest, "Email and password required").Write(w)
		return
	}
	id, err := s.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "User registered", "user_id", id)
	MessageResponse(http.StatusCreated, "Registration successful").Write(w)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAuthError(w, r, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		MessageResponse(http.StatusBadRequest, "Email and password required").Write(w)
		return
	}
	token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	NewJSONResponse().
		Body(map[string]string{"message": "Login successful", "token": token}).
		Write(w)
}
