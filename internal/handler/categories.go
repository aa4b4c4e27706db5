package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
)

// Column widths of categoria.
const (
	maxCategoryName = 100
	maxCategoryDesc = 255
)

// CategoryStore defines the database methods needed by category handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CategoryStore interface {
	ListCategorias(ctx context.Context) ([]database.ListCategoriasRow, error)
	CreateCategoria(ctx context.Context, arg database.CreateCategoriaParams) (database.Categoria, error)
	UpdateCategoria(ctx context.Context, arg database.UpdateCategoriaParams) (database.Categoria, error)
	SoftDeleteCategoria(ctx context.Context, id uuid.UUID) (int64, error)
	CreateAuditoria(ctx context.Context, arg database.CreateAuditoriaParams) (database.Auditoria, error)
}

// CategoryHandler serves the menu categories used to group products.
type CategoryHandler struct {
	store CategoryStore
}

func NewCategoryHandler(store CategoryStore) *CategoryHandler {
	return &CategoryHandler{store: store}
}

// RegisterRoutes is mounted at /categories behind the administrator guard.
func (h *CategoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type categoryRequest struct {
	Nombre      string `json:"nombre"`
	Descripcion string `json:"descripcion"`
}

// validate trims the fields in place and returns a client-facing message
// for the first problem found.
func (req *categoryRequest) validate() string {
	req.Nombre = strings.TrimSpace(req.Nombre)
	req.Descripcion = strings.TrimSpace(req.Descripcion)
	switch {
	case req.Nombre == "":
		return "nombre es obligatorio."
	case utf8.RuneCountInString(req.Nombre) > maxCategoryName:
		return fmt.Sprintf("nombre admite como máximo %d caracteres.", maxCategoryName)
	case utf8.RuneCountInString(req.Descripcion) > maxCategoryDesc:
		return fmt.Sprintf("descripcion admite como máximo %d caracteres.", maxCategoryDesc)
	}
	return ""
}

type categoryResponse struct {
	ID             uuid.UUID `json:"id"`
	Nombre         string    `json:"nombre"`
	Descripcion    *string   `json:"descripcion"`
	TotalProductos *int64    `json:"total_productos,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func newCategoryResponse(id uuid.UUID, nombre string, desc pgtype.Text, createdAt time.Time) categoryResponse {
	resp := categoryResponse{ID: id, Nombre: nombre, CreatedAt: createdAt}
	if desc.Valid {
		resp.Descripcion = &desc.String
	}
	return resp
}

// --- Handlers ---

// List returns live categories by name, each with its count of live products.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListCategorias(r.Context())
	if err != nil {
		log.Printf("ERROR: list categories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	resp := make([]categoryResponse, 0, len(rows))
	for _, c := range rows {
		item := newCategoryResponse(c.ID, c.Nombre, c.Descripcion, c.CreatedAt)
		total := c.TotalProductos
		item.TotalProductos = &total
		resp = append(resp, item)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *CategoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	req, ok := decodeCategory(w, r)
	if !ok {
		return
	}

	c, err := h.store.CreateCategoria(r.Context(), database.CreateCategoriaParams{
		Nombre:      req.Nombre,
		Descripcion: optionalText(req.Descripcion),
	})
	if err != nil {
		h.writeStoreError(w, "create category", err)
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionCrearCategoria,
		fmt.Sprintf("Categoría %q creada", c.Nombre))
	writeJSON(w, http.StatusCreated, newCategoryResponse(c.ID, c.Nombre, c.Descripcion, c.CreatedAt))
}

func (h *CategoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	req, ok := decodeCategory(w, r)
	if !ok {
		return
	}

	c, err := h.store.UpdateCategoria(r.Context(), database.UpdateCategoriaParams{
		ID:          id,
		Nombre:      req.Nombre,
		Descripcion: optionalText(req.Descripcion),
	})
	if err != nil {
		h.writeStoreError(w, "update category", err)
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionActualizarCategoria,
		fmt.Sprintf("Categoría %s renombrada a %q", c.ID, c.Nombre))
	writeJSON(w, http.StatusOK, newCategoryResponse(c.ID, c.Nombre, c.Descripcion, c.CreatedAt))
}

// Delete soft-deletes a category. Its products keep id_categoria and stay
// on the menu.
func (h *CategoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	n, err := h.store.SoftDeleteCategoria(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, "delete category", err)
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": msgCategoryNotFound})
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionEliminarCategoria,
		fmt.Sprintf("Categoría %s eliminada", id))
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func decodeCategory(w http.ResponseWriter, r *http.Request) (categoryRequest, bool) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return req, false
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return req, false
	}
	return req, true
}

func (h *CategoryHandler) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": msgCategoryNotFound})
	case isUniqueViolation(err):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Ya existe una categoría con ese nombre."})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
	}
}

func optionalText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
