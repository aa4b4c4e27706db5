package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/typica-pos/api/internal/auth"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/service"
)

// Authenticator checks credentials and records sessions.
// Satisfied by *service.AuthService.
type Authenticator interface {
	Login(ctx context.Context, email, password, ip string) (database.Usuario, error)
	Logout(ctx context.Context, userID uuid.UUID, ip string)
}

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (database.Usuario, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	svc       Authenticator
	store     AuthStore
	jwtSecret string
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(svc Authenticator, store AuthStore, jwtSecret string) *AuthHandler {
	return &AuthHandler{svc: svc, store: store, jwtSecret: jwtSecret}
}

// RegisterRoutes registers the public auth endpoints on the given Chi router.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh", h.Refresh)
}

// RegisterSessionRoutes registers endpoints that need an authenticated caller.
func (h *AuthHandler) RegisterSessionRoutes(r chi.Router) {
	r.Post("/auth/logout", h.Logout)
	r.Get("/auth/me", h.Me)
}

// --- Request / Response types ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"` // access token lifetime in seconds
	User         userResponse `json:"user"`
}

type userResponse struct {
	ID     uuid.UUID `json:"id"`
	Nombre string    `json:"nombre"`
	Email  string    `json:"email"`
	Rol    string    `json:"rol"`
	IDRol  int16     `json:"id_rol"`
	Estado string    `json:"estado"`
}

// --- Handlers ---

// Login handles email + password authentication.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "El correo y la contraseña son obligatorios."})
		return
	}

	user, err := h.svc.Login(r.Context(), req.Email, req.Password, clientIP(r))
	if err != nil {
		var throttled *service.ThrottledError
		if errors.As(err, &throttled) {
			w.Header().Set("Retry-After", strconv.Itoa(throttled.Seconds()))
		}
		status, text := loginErrorText(err)
		if status == http.StatusInternalServerError {
			log.Printf("ERROR: login: %v", err)
		}
		writeJSON(w, status, map[string]string{"error": text})
		return
	}

	h.respondWithTokens(w, user)
}

// Refresh exchanges a valid refresh token for a new access + refresh token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}

	if req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "refresh_token es obligatorio."})
		return
	}

	userID, err := auth.ValidateRefreshToken(h.jwtSecret, req.RefreshToken)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "El token de renovación no es válido."})
		return
	}

	user, err := h.store.GetUsuarioByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msgUserNotFound})
			return
		}
		log.Printf("ERROR: refresh get usuario: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	if user.Bloqueado {
		writeJSON(w, http.StatusLocked, map[string]string{"error": msgLocked})
		return
	}

	h.respondWithTokens(w, user)
}

// Logout records the end of a session. Tokens are stateless; the client
// discards them.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	h.svc.Logout(r.Context(), actor.ID, clientIP(r))
	w.WriteHeader(http.StatusNoContent)
}

// Me returns the authenticated user as currently stored, so a role change
// shows up before the access token expires.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	user, err := h.store.GetUsuarioByID(r.Context(), actor.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": msgUserNotFound})
			return
		}
		log.Printf("ERROR: me get usuario: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, user database.Usuario) {
	resp, err := h.issueTokens(user)
	if err != nil {
		log.Printf("ERROR: sign tokens for %s: %v", user.ID, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) issueTokens(user database.Usuario) (tokenResponse, error) {
	access, err := auth.GenerateToken(h.jwtSecret, user.ID, user.Nombre, enum.RolNombre(user.IDRol))
	if err != nil {
		return tokenResponse{}, err
	}
	refresh, err := auth.GenerateRefreshToken(h.jwtSecret, user.ID)
	if err != nil {
		return tokenResponse{}, err
	}
	return tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int(auth.AccessTokenTTL.Seconds()),
		User:         toUserResponse(user),
	}, nil
}

func toUserResponse(u database.Usuario) userResponse {
	return userResponse{
		ID:     u.ID,
		Nombre: u.Nombre,
		Email:  u.Email,
		Rol:    enum.RolNombre(u.IDRol),
		IDRol:  u.IDRol,
		Estado: u.Estado,
	}
}

// clientIP returns the caller address. middleware.RealIP has already
// replaced RemoteAddr with the forwarded address when one was sent.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}
