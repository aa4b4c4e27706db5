package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
)

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	GetProducto(ctx context.Context, id uuid.UUID) (database.Producto, error)
	ListProductos(ctx context.Context) ([]database.Producto, error)
	ListProductosDisponibles(ctx context.Context) ([]database.Producto, error)
	ListProductosEliminados(ctx context.Context) ([]database.Producto, error)
	CreateProducto(ctx context.Context, arg database.CreateProductoParams) (database.Producto, error)
	UpdateProducto(ctx context.Context, arg database.UpdateProductoParams) (database.Producto, error)
	SetProductoDisponibilidad(ctx context.Context, arg database.SetProductoDisponibilidadParams) (database.Producto, error)
	SetProductoCantidad(ctx context.Context, arg database.SetProductoCantidadParams) (database.Producto, error)
	SoftDeleteProducto(ctx context.Context, id uuid.UUID) (int64, error)
	RestoreProducto(ctx context.Context, id uuid.UUID) (database.Producto, error)
	CreateAuditoria(ctx context.Context, arg database.CreateAuditoriaParams) (database.Auditoria, error)
}

// ProductHandler handles product catalog endpoints.
type ProductHandler struct {
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterMenuRoutes registers the read-only menu used when taking orders.
// Mounted at /products for any authenticated user.
func (h *ProductHandler) RegisterMenuRoutes(r chi.Router) {
	r.Get("/available", h.ListAvailable)
}

// RegisterRoutes registers product management endpoints.
// Mounted at /products inside the Administrador group.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/deleted", h.ListDeleted)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Patch("/{id}/availability", h.SetAvailability)
	r.Patch("/{id}/quantity", h.SetQuantity)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/restore", h.Restore)
}

// --- Request / Response types ---

type productRequest struct {
	Nombre             string `json:"nombre"`
	Descripcion        string `json:"descripcion"`
	IDCategoria        string `json:"id_categoria"`
	Precio             string `json:"precio"`
	Disponibilidad     *bool  `json:"disponibilidad"`
	CantidadDisponible *int32 `json:"cantidad_disponible"`
	Imagen             string `json:"imagen"`
}

type availabilityRequest struct {
	Disponibilidad *bool `json:"disponibilidad"`
}

type quantityRequest struct {
	Cantidad *int32 `json:"cantidad"`
}

type productResponse struct {
	ID                 uuid.UUID  `json:"id"`
	Nombre             string     `json:"nombre"`
	Descripcion        *string    `json:"descripcion"`
	IDCategoria        *uuid.UUID `json:"id_categoria"`
	Precio             string     `json:"precio"`
	Disponibilidad     bool       `json:"disponibilidad"`
	CantidadDisponible int32      `json:"cantidad_disponible"`
	Imagen             *string    `json:"imagen"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func toProductResponse(p database.Producto) productResponse {
	resp := productResponse{
		ID:                 p.ID,
		Nombre:             p.Nombre,
		IDCategoria:        optionalUUID(p.IDCategoria),
		Precio:             numericToString(p.Precio),
		Disponibilidad:     p.Disponibilidad,
		CantidadDisponible: p.CantidadDisponible,
		CreatedAt:          p.CreatedAt,
		UpdatedAt:          p.UpdatedAt,
	}
	if p.Descripcion.Valid {
		resp.Descripcion = &p.Descripcion.String
	}
	if p.Imagen.Valid {
		resp.Imagen = &p.Imagen.String
	}
	return resp
}

func toProductResponses(products []database.Producto) []productResponse {
	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = toProductResponse(p)
	}
	return resp
}

// --- Handlers ---

// ListAvailable returns products that can be ordered right now.
func (h *ProductHandler) ListAvailable(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProductosDisponibles(r.Context())
	if err != nil {
		log.Printf("ERROR: list available products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// List returns every live product.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProductos(r.Context())
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// ListDeleted returns soft-deleted products.
func (h *ProductHandler) ListDeleted(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProductosEliminados(r.Context())
	if err != nil {
		log.Printf("ERROR: list deleted products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	writeJSON(w, http.StatusOK, toProductResponses(products))
}

// Get returns a single product by ID.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	prodID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	product, err := h.store.GetProducto(r.Context(), prodID)
	if err != nil {
		h.writeStoreError(w, "get product", err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Create adds a new product.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}
	fields, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	params := database.CreateProductoParams{
		Nombre:         fields.nombre,
		Descripcion:    fields.descripcion,
		IDCategoria:    fields.categoria,
		Precio:         fields.precio,
		Disponibilidad: true,
		Imagen:         fields.imagen,
	}
	if req.Disponibilidad != nil {
		params.Disponibilidad = *req.Disponibilidad
	}
	if req.CantidadDisponible != nil {
		if *req.CantidadDisponible < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cantidad_disponible no puede ser negativa."})
			return
		}
		params.CantidadDisponible = *req.CantidadDisponible
	}

	product, err := h.store.CreateProducto(r.Context(), params)
	if err != nil {
		h.writeStoreError(w, "create product", err)
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionCrearProducto,
		fmt.Sprintf("%s creó el producto %s", actor.Name, product.Nombre))
	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update modifies name, description, category, price and image.
// Stock and availability have their own endpoints.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	prodID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req productRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}
	fields, msg := req.validate()
	if msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	product, err := h.store.UpdateProducto(r.Context(), database.UpdateProductoParams{
		ID:          prodID,
		Nombre:      fields.nombre,
		Descripcion: fields.descripcion,
		IDCategoria: fields.categoria,
		Precio:      fields.precio,
		Imagen:      fields.imagen,
	})
	if err != nil {
		h.writeStoreError(w, "update product", err)
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionActualizarProducto,
		fmt.Sprintf("%s actualizó el producto %s", actor.Name, product.Nombre))
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// SetAvailability sets disponibilidad from the body, or toggles it when
// the body is empty.
func (h *ProductHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	prodID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}

	var target bool
	if req.Disponibilidad != nil {
		target = *req.Disponibilidad
	} else {
		current, err := h.store.GetProducto(r.Context(), prodID)
		if err != nil {
			h.writeStoreError(w, "toggle availability", err)
			return
		}
		target = !current.Disponibilidad
	}

	product, err := h.store.SetProductoDisponibilidad(r.Context(), database.SetProductoDisponibilidadParams{
		ID:             prodID,
		Disponibilidad: target,
	})
	if err != nil {
		h.writeStoreError(w, "set availability", err)
		return
	}

	estado := "Agotado"
	if product.Disponibilidad {
		estado = "Disponible"
	}
	recordAudit(r.Context(), h.store, actor.ID, enum.AccionDisponibilidadProd,
		fmt.Sprintf("%s cambió disponibilidad de %s a %s", actor.Name, product.Nombre, estado))
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// SetQuantity replaces the available quantity counter.
func (h *ProductHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	prodID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}
	if req.Cantidad == nil || *req.Cantidad < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cantidad debe ser un entero mayor o igual a 0."})
		return
	}

	product, err := h.store.SetProductoCantidad(r.Context(), database.SetProductoCantidadParams{
		ID:                 prodID,
		CantidadDisponible: *req.Cantidad,
	})
	if err != nil {
		h.writeStoreError(w, "set quantity", err)
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionActualizarCantidad,
		fmt.Sprintf("%s actualizó la cantidad de %s a %d", actor.Name, product.Nombre, product.CantidadDisponible))
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete soft-deletes a product. Past order lines keep referencing it.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	prodID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	product, err := h.store.GetProducto(r.Context(), prodID)
	if err != nil {
		h.writeStoreError(w, "delete product", err)
		return
	}

	n, err := h.store.SoftDeleteProducto(r.Context(), prodID)
	if err != nil {
		h.writeStoreError(w, "delete product", err)
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": msgProductNotFound})
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionEliminarProducto,
		fmt.Sprintf("%s eliminó el producto %s", actor.Name, product.Nombre))
	w.WriteHeader(http.StatusNoContent)
}

// Restore brings back a soft-deleted product.
func (h *ProductHandler) Restore(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	prodID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	product, err := h.store.RestoreProducto(r.Context(), prodID)
	if err != nil {
		h.writeStoreError(w, "restore product", err)
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionRestaurarProducto,
		fmt.Sprintf("%s restauró el producto %s", actor.Name, product.Nombre))
	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// --- Helpers ---

type productFields struct {
	nombre      string
	descripcion pgtype.Text
	categoria   pgtype.UUID
	precio      pgtype.Numeric
	imagen      pgtype.Text
}

// validate checks the editable fields and converts them to column values.
// It returns a non-empty message on the first invalid field.
func (req productRequest) validate() (productFields, string) {
	var f productFields
	f.nombre = strings.TrimSpace(req.Nombre)
	if f.nombre == "" {
		return f, "nombre is required"
	}
	if req.Precio == "" {
		return f, "precio is required"
	}
	precio, err := parsePrice(req.Precio)
	if err != nil {
		return f, "precio must be a non-negative number"
	}
	f.precio = precio

	if req.IDCategoria != "" {
		id, err := uuid.Parse(req.IDCategoria)
		if err != nil {
			return f, "invalid id_categoria"
		}
		f.categoria = pgtype.UUID{Bytes: id, Valid: true}
	}
	if d := strings.TrimSpace(req.Descripcion); d != "" {
		f.descripcion = pgtype.Text{String: d, Valid: true}
	}
	if img := strings.TrimSpace(req.Imagen); img != "" {
		f.imagen = pgtype.Text{String: img, Valid: true}
	}
	return f, ""
}

func (h *ProductHandler) writeStoreError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": msgProductNotFound})
	case isForeignKeyViolation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgCategoryNotFound})
	case isCheckViolation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cantidad_disponible no puede ser negativa."})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
	}
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

var errNegativePrice = errors.New("negative price")

// parsePrice parses a money amount into a NUMERIC column value.
func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errNegativePrice
	}
	var n pgtype.Numeric
	if err := n.Scan(d.StringFixed(2)); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}
