package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/typica-pos/api/internal/database"
)

// ComboStore defines the database methods needed by combo handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ComboStore interface {
	// Product lookups
	GetProducto(ctx context.Context, id uuid.UUID) (database.Producto, error)

	// Combo operations
	ListCombos(ctx context.Context) ([]database.Combo, error)
	GetCombo(ctx context.Context, id uuid.UUID) (database.Combo, error)
	CreateCombo(ctx context.Context, arg database.CreateComboParams) (database.Combo, error)
	UpdateCombo(ctx context.Context, arg database.UpdateComboParams) (database.Combo, error)
	SoftDeleteCombo(ctx context.Context, id uuid.UUID) (int64, error)

	// Combo item operations
	ListDetallesCombo(ctx context.Context, comboID uuid.UUID) ([]database.ListDetallesComboRow, error)
	AddDetalleCombo(ctx context.Context, arg database.AddDetalleComboParams) (database.Detallecombo, error)
	DeleteDetalleCombo(ctx context.Context, arg database.DeleteDetalleComboParams) (int64, error)
}

// ComboHandler handles combo and combo item endpoints.
type ComboHandler struct {
	store ComboStore
}

// NewComboHandler creates a new ComboHandler.
func NewComboHandler(store ComboStore) *ComboHandler {
	return &ComboHandler{store: store}
}

// RegisterRoutes registers combo endpoints on the given Chi router.
// Expected to be mounted at /combos.
func (h *ComboHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/items", h.AddItem)
	r.Delete("/{id}/items/{pid}", h.RemoveItem)
}

// --- Request / Response types ---

type comboRequest struct {
	Nombre         string `json:"nombre"`
	Descripcion    string `json:"descripcion"`
	Precio         string `json:"precio"`
	Disponibilidad *bool  `json:"disponibilidad"`
}

type comboItemRequest struct {
	IDProducto string `json:"id_producto"`
	Cantidad   int32  `json:"cantidad"`
}

type comboResponse struct {
	ID             uuid.UUID           `json:"id"`
	Nombre         string              `json:"nombre"`
	Descripcion    *string             `json:"descripcion"`
	Precio         string              `json:"precio"`
	Disponibilidad bool                `json:"disponibilidad"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
	Items          []comboItemResponse `json:"items,omitempty"`
}

type comboItemResponse struct {
	ID         uuid.UUID `json:"id"`
	IDProducto uuid.UUID `json:"id_producto"`
	Producto   string    `json:"producto,omitempty"`
	Cantidad   int32     `json:"cantidad"`
}

func toComboResponse(c database.Combo) comboResponse {
	resp := comboResponse{
		ID:             c.ID,
		Nombre:         c.Nombre,
		Precio:         numericToString(c.Precio),
		Disponibilidad: c.Disponibilidad,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.Descripcion.Valid {
		resp.Descripcion = &c.Descripcion.String
	}
	return resp
}

// --- Helpers ---

// validate returns the parsed fields or writes 400.
func (req comboRequest) validate(w http.ResponseWriter) (database.CreateComboParams, bool) {
	nombre := strings.TrimSpace(req.Nombre)
	if nombre == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "nombre es obligatorio."})
		return database.CreateComboParams{}, false
	}
	precio, err := parsePrice(req.Precio)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "precio debe ser un número no negativo."})
		return database.CreateComboParams{}, false
	}
	params := database.CreateComboParams{
		Nombre:         nombre,
		Descripcion:    optionalText(req.Descripcion),
		Precio:         precio,
		Disponibilidad: true,
	}
	if req.Disponibilidad != nil {
		params.Disponibilidad = *req.Disponibilidad
	}
	return params, true
}

// loadCombo fetches the combo named by {id}, or writes an error response.
func (h *ComboHandler) loadCombo(w http.ResponseWriter, r *http.Request) (database.Combo, bool) {
	comboID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return database.Combo{}, false
	}

	combo, err := h.store.GetCombo(r.Context(), comboID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": msgComboNotFound})
			return database.Combo{}, false
		}
		log.Printf("ERROR: get combo: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return database.Combo{}, false
	}
	return combo, true
}

// --- Handlers ---

// List returns all live combos without their items.
func (h *ComboHandler) List(w http.ResponseWriter, r *http.Request) {
	combos, err := h.store.ListCombos(r.Context())
	if err != nil {
		log.Printf("ERROR: list combos: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	resp := make([]comboResponse, len(combos))
	for i, c := range combos {
		resp[i] = toComboResponse(c)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns one combo with its items.
func (h *ComboHandler) Get(w http.ResponseWriter, r *http.Request) {
	combo, ok := h.loadCombo(w, r)
	if !ok {
		return
	}

	items, err := h.store.ListDetallesCombo(r.Context(), combo.ID)
	if err != nil {
		log.Printf("ERROR: list combo items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	resp := toComboResponse(combo)
	resp.Items = make([]comboItemResponse, len(items))
	for i, it := range items {
		resp.Items[i] = comboItemResponse{
			ID:         it.ID,
			IDProducto: it.IDProducto,
			Producto:   it.ProductoNombre,
			Cantidad:   it.Cantidad,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Create adds a new combo. Items are added separately.
func (h *ComboHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req comboRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}
	params, ok := req.validate(w)
	if !ok {
		return
	}

	combo, err := h.store.CreateCombo(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: create combo: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	writeJSON(w, http.StatusCreated, toComboResponse(combo))
}

// Update modifies an existing combo.
func (h *ComboHandler) Update(w http.ResponseWriter, r *http.Request) {
	comboID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req comboRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}
	params, ok := req.validate(w)
	if !ok {
		return
	}

	combo, err := h.store.UpdateCombo(r.Context(), database.UpdateComboParams{
		ID:             comboID,
		Nombre:         params.Nombre,
		Descripcion:    params.Descripcion,
		Precio:         params.Precio,
		Disponibilidad: params.Disponibilidad,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": msgComboNotFound})
			return
		}
		log.Printf("ERROR: update combo: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	writeJSON(w, http.StatusOK, toComboResponse(combo))
}

// Delete soft-deletes a combo.
func (h *ComboHandler) Delete(w http.ResponseWriter, r *http.Request) {
	comboID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	n, err := h.store.SoftDeleteCombo(r.Context(), comboID)
	if err != nil {
		log.Printf("ERROR: delete combo: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": msgComboNotFound})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AddItem adds a product to a combo.
func (h *ComboHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	combo, ok := h.loadCombo(w, r)
	if !ok {
		return
	}

	var req comboItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}

	if req.IDProducto == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id_producto es obligatorio."})
		return
	}

	productID, err := uuid.Parse(req.IDProducto)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id_producto inválido."})
		return
	}

	// Verify the product exists and is live
	product, err := h.store.GetProducto(r.Context(), productID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgProductNotFound})
			return
		}
		log.Printf("ERROR: verify combo product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	// Default quantity to 1 if not specified or zero
	cantidad := req.Cantidad
	if cantidad <= 0 {
		cantidad = 1
	}

	item, err := h.store.AddDetalleCombo(r.Context(), database.AddDetalleComboParams{
		IDCombo:    combo.ID,
		IDProducto: productID,
		Cantidad:   cantidad,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "El producto ya forma parte del combo."})
			return
		}
		log.Printf("ERROR: add combo item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	writeJSON(w, http.StatusCreated, comboItemResponse{
		ID:         item.ID,
		IDProducto: item.IDProducto,
		Producto:   product.Nombre,
		Cantidad:   item.Cantidad,
	})
}

// RemoveItem hard-deletes a product from a combo.
func (h *ComboHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	comboID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}
	productID, ok := parseUUIDParam(w, r, "pid")
	if !ok {
		return
	}

	rowsAffected, err := h.store.DeleteDetalleCombo(r.Context(), database.DeleteDetalleComboParams{
		IDCombo:    comboID,
		IDProducto: productID,
	})
	if err != nil {
		log.Printf("ERROR: remove combo item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	if rowsAffected == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "El producto no forma parte del combo."})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
