package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"golang.org/x/crypto/bcrypt"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	GetUsuarioByID(ctx context.Context, id uuid.UUID) (database.Usuario, error)
	ListUsuarios(ctx context.Context) ([]database.Usuario, error)
	ListUsuariosEliminados(ctx context.Context) ([]database.Usuario, error)
	CreateUsuario(ctx context.Context, arg database.CreateUsuarioParams) (database.Usuario, error)
	UpdateUsuario(ctx context.Context, arg database.UpdateUsuarioParams) (database.Usuario, error)
	UpdateUsuarioContrasena(ctx context.Context, arg database.UpdateUsuarioContrasenaParams) error
	SoftDeleteUsuario(ctx context.Context, id uuid.UUID) (int64, error)
	RestoreUsuario(ctx context.Context, id uuid.UUID) (database.Usuario, error)
	UnlockUsuario(ctx context.Context, id uuid.UUID) (database.Usuario, error)
	CountUsuariosByRol(ctx context.Context, idRol int16) (int64, error)
	CreateAuditoria(ctx context.Context, arg database.CreateAuditoriaParams) (database.Auditoria, error)
}

// UserHandler handles user administration endpoints.
type UserHandler struct {
	store UserStore
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore) *UserHandler {
	return &UserHandler{store: store}
}

// RegisterRoutes registers user endpoints on the given Chi router.
// Expected to be mounted at /users inside the Administrador group.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/deleted", h.ListDeleted)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/restore", h.Restore)
	r.Post("/{id}/unlock", h.Unlock)
}

var nombreRe = regexp.MustCompile(`^[\p{L}\s]+$`)

// --- Request / Response types ---

type createUserRequest struct {
	Nombre     string `json:"nombre"`
	Email      string `json:"email"`
	Contrasena string `json:"contrasena"`
	IDRol      int16  `json:"id_rol"`
}

type updateUserRequest struct {
	Nombre     string `json:"nombre"`
	Email      string `json:"email"`
	IDRol      int16  `json:"id_rol"`
	Estado     string `json:"estado"`
	Contrasena string `json:"contrasena"`
}

type userDetailResponse struct {
	userResponse
	Bloqueado        bool       `json:"bloqueado"`
	BloqueadoHasta   *time.Time `json:"bloqueado_hasta"`
	IntentosFallidos int32      `json:"intentos_fallidos"`
	BloqueosHoy      int32      `json:"bloqueos_hoy"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func toUserDetailResponse(u database.Usuario) userDetailResponse {
	resp := userDetailResponse{
		userResponse:     toUserResponse(u),
		Bloqueado:        u.Bloqueado,
		IntentosFallidos: u.IntentosFallidos,
		BloqueosHoy:      u.BloqueosHoy,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
	if u.BloqueadoHasta.Valid {
		t := u.BloqueadoHasta.Time
		resp.BloqueadoHasta = &t
	}
	return resp
}

// --- Handlers ---

// List returns all live users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsuarios(r.Context())
	if err != nil {
		log.Printf("ERROR: list users: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	writeJSON(w, http.StatusOK, toUserDetailResponses(users))
}

// ListDeleted returns soft-deleted users.
func (h *UserHandler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsuariosEliminados(r.Context())
	if err != nil {
		log.Printf("ERROR: list deleted users: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	writeJSON(w, http.StatusOK, toUserDetailResponses(users))
}

// Get returns one live user.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	user, err := h.store.GetUsuarioByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": msgUserNotFound})
			return
		}
		log.Printf("ERROR: get user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	writeJSON(w, http.StatusOK, toUserDetailResponse(user))
}

// Create adds a new active user.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}
	req.Nombre = strings.TrimSpace(req.Nombre)
	req.Email = strings.TrimSpace(req.Email)

	if req.Nombre == "" || req.Email == "" || req.Contrasena == "" || req.IDRol == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "nombre, email, contrasena e id_rol son obligatorios."})
		return
	}
	if msg := validateUserFields(req.Nombre, req.Email, req.IDRol); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if !isStrongPassword(req.Contrasena) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgWeakPassword})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Contrasena), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("ERROR: create user: hash password: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	user, err := h.store.CreateUsuario(r.Context(), database.CreateUsuarioParams{
		Nombre:         req.Nombre,
		Email:          req.Email,
		ContrasenaHash: string(hashed),
		IDRol:          req.IDRol,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "El correo electrónico ya está registrado."})
			return
		}
		log.Printf("ERROR: create user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionCrearUsuario,
		fmt.Sprintf("%s creó al usuario %s (%s)", actor.Name, user.Nombre, user.Email))
	writeJSON(w, http.StatusCreated, toUserDetailResponse(user))
}

// Update modifies a user's profile, role and status. A non-empty
// contrasena also replaces the password.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	userID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}
	req.Nombre = strings.TrimSpace(req.Nombre)
	req.Email = strings.TrimSpace(req.Email)

	if req.Nombre == "" || req.Email == "" || req.IDRol == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "nombre, email e id_rol son obligatorios."})
		return
	}
	if msg := validateUserFields(req.Nombre, req.Email, req.IDRol); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}
	if req.Estado == "" {
		req.Estado = enum.UsuarioActivo
	}
	if req.Estado != enum.UsuarioActivo && req.Estado != enum.UsuarioInactivo {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Estado inválido."})
		return
	}
	if req.Contrasena != "" && !isStrongPassword(req.Contrasena) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgWeakPassword})
		return
	}

	current, err := h.store.GetUsuarioByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": msgUserNotFound})
			return
		}
		log.Printf("ERROR: update user: get: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	if current.IDRol == enum.RolAdministrador && req.IDRol != enum.RolAdministrador {
		if !h.otherAdminsExist(w, r) {
			return
		}
	}

	user, err := h.store.UpdateUsuario(r.Context(), database.UpdateUsuarioParams{
		ID:     userID,
		Nombre: req.Nombre,
		Email:  req.Email,
		IDRol:  req.IDRol,
		Estado: req.Estado,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": msgUserNotFound})
			return
		}
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "El correo electrónico ya está registrado."})
			return
		}
		log.Printf("ERROR: update user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	if req.Contrasena != "" {
		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Contrasena), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("ERROR: update user: hash password: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
			return
		}
		err = h.store.UpdateUsuarioContrasena(r.Context(), database.UpdateUsuarioContrasenaParams{
			ID:             userID,
			ContrasenaHash: string(hashed),
		})
		if err != nil {
			log.Printf("ERROR: update user: set password: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
			return
		}
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionActualizarUsuario,
		fmt.Sprintf("%s actualizó los datos del usuario %s", actor.Name, user.Nombre))
	writeJSON(w, http.StatusOK, toUserDetailResponse(user))
}

// Delete soft-deletes a user. The last live administrator cannot be deleted.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	userID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	user, err := h.store.GetUsuarioByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": msgUserNotFound})
			return
		}
		log.Printf("ERROR: delete user: get: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	if user.IDRol == enum.RolAdministrador && !h.otherAdminsExist(w, r) {
		return
	}

	n, err := h.store.SoftDeleteUsuario(r.Context(), userID)
	if err != nil {
		log.Printf("ERROR: delete user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": msgUserNotFound})
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionEliminarUsuario,
		fmt.Sprintf("%s eliminó al usuario %s", actor.Name, user.Nombre))
	w.WriteHeader(http.StatusNoContent)
}

// Restore brings back a soft-deleted user.
func (h *UserHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	userID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	user, err := h.store.RestoreUsuario(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Este usuario no está marcado como eliminado."})
			return
		}
		log.Printf("ERROR: restore user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionRestaurarUsuario,
		fmt.Sprintf("%s restauró al usuario %s", actor.Name, user.Nombre))
	writeJSON(w, http.StatusOK, toUserDetailResponse(user))
}

// Unlock clears every lockout counter of a user, including a permanent lock.
func (h *UserHandler) Unlock(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	userID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	user, err := h.store.UnlockUsuario(r.Context(), userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": msgUserNotFound})
			return
		}
		log.Printf("ERROR: unlock user: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionDesbloquearUsuario,
		fmt.Sprintf("%s desbloqueó al usuario %s", actor.Name, user.Nombre))
	writeJSON(w, http.StatusOK, toUserDetailResponse(user))
}

// --- Helpers ---

const msgWeakPassword = "La contraseña debe tener al menos 8 caracteres, una letra, un número y un símbolo (@$!%*?&)."

// otherAdminsExist writes 409 and returns false when the target is the only
// live administrator left.
func (h *UserHandler) otherAdminsExist(w http.ResponseWriter, r *http.Request) bool {
	admins, err := h.store.CountUsuariosByRol(r.Context(), enum.RolAdministrador)
	if err != nil {
		log.Printf("ERROR: count administrators: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return false
	}
	if admins <= 1 {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "No puedes eliminar el último administrador del sistema."})
		return false
	}
	return true
}

func validateUserFields(nombre, email string, idRol int16) string {
	if !nombreRe.MatchString(nombre) {
		return "nombre may only contain letters and spaces"
	}
	if !strings.Contains(email, "@") {
		return "invalid email format"
	}
	if !isValidRole(idRol) {
		return "invalid role"
	}
	return ""
}

func isValidRole(idRol int16) bool {
	return enum.RolNombre(idRol) != ""
}

// isStrongPassword requires at least 8 characters with a letter, a digit
// and one of @$!%*?&.
func isStrongPassword(p string) bool {
	if len(p) < 8 {
		return false
	}
	var letter, digit, symbol bool
	for _, c := range p {
		switch {
		case unicode.IsLetter(c):
			letter = true
		case unicode.IsDigit(c):
			digit = true
		case strings.ContainsRune("@$!%*?&", c):
			symbol = true
		}
	}
	return letter && digit && symbol
}

func toUserDetailResponses(users []database.Usuario) []userDetailResponse {
	resp := make([]userDetailResponse, len(users))
	for i, u := range users {
		resp[i] = toUserDetailResponse(u)
	}
	return resp
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
