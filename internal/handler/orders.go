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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/export"
	"github.com/typica-pos/api/internal/middleware"
	"github.com/typica-pos/api/internal/service"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Create(ctx context.Context, actor service.Actor, items []service.LineInput) (*service.OrderResult, error)
	Edit(ctx context.Context, actor service.Actor, id uuid.UUID, items []service.LineInput) (*service.OrderResult, error)
	Cancel(ctx context.Context, actor service.Actor, id uuid.UUID) (*service.OrderResult, error)
	Redo(ctx context.Context, actor service.Actor, id uuid.UUID) (*service.OrderResult, error)
	Restore(ctx context.Context, actor service.Actor, id uuid.UUID) (*service.OrderResult, error)
	Reject(ctx context.Context, actor service.Actor, id uuid.UUID, reason string) (*service.OrderResult, error)
	MarkPaid(ctx context.Context, actor service.Actor, id uuid.UUID, method string) (*service.OrderResult, error)
	UnmarkPaid(ctx context.Context, actor service.Actor, id uuid.UUID) (*service.OrderResult, error)
	SetState(ctx context.Context, actor service.Actor, id uuid.UUID, estado int16) (*service.OrderResult, error)
	KitchenSetState(ctx context.Context, actor service.Actor, id uuid.UUID, estado int16) (*service.OrderResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	service.RulesStore
	GetPedidoVista(ctx context.Context, id uuid.UUID) (database.PedidoVista, error)
	ListPedidosVista(ctx context.Context) ([]database.PedidoVista, error)
	ListPedidosVistaByMesero(ctx context.Context, meseroID uuid.UUID) ([]database.PedidoVista, error)
	ListDetallesByPedidos(ctx context.Context, pedidoIDs []uuid.UUID) ([]database.DetalleVista, error)
	GetPagoByPedido(ctx context.Context, pedidoID uuid.UUID) (database.Pago, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	loc   *time.Location
	now   func() time.Time
}

// NewOrderHandler creates a new OrderHandler. loc is the zone used to
// report "now" alongside the order rules.
func NewOrderHandler(svc OrderServicer, store OrderStore, loc *time.Location) *OrderHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderHandler{svc: svc, store: store, loc: loc, now: time.Now}
}

// RegisterRoutes registers the waiter order endpoints. Mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/mine", h.Mine)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/cancel", h.Cancel)
	r.Post("/{id}/redo", h.Redo)
}

// RegisterAdminRoutes registers administrator-only order endpoints.
func (h *OrderHandler) RegisterAdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Patch("/{id}/state", h.SetState)
	r.Post("/{id}/restore", h.Restore)
}

// RegisterKitchenRoutes registers order endpoints used from the kitchen.
func (h *OrderHandler) RegisterKitchenRoutes(r chi.Router) {
	r.Post("/{id}/reject", h.Reject)
}

// RegisterPaymentRoutes registers the cashier payment endpoints.
func (h *OrderHandler) RegisterPaymentRoutes(r chi.Router) {
	r.Post("/{id}/payment", h.Pay)
	r.Delete("/{id}/payment", h.Unpay)
}

// RegisterPrintRoutes registers the printable comanda.
func (h *OrderHandler) RegisterPrintRoutes(r chi.Router) {
	r.Get("/{id}/comanda.pdf", h.Comanda)
}

// Limits on free text typed by staff.
const (
	maxLineComment  = 500
	maxRejectReason = 255
)

// --- Request / Response types ---

type orderItemRequest struct {
	ProductID  string `json:"id_producto"`
	Cantidad   int32  `json:"cantidad"`
	Comentario string `json:"comentario"`
}

type orderRequest struct {
	Items []orderItemRequest `json:"items"`
}

type rejectRequest struct {
	Motivo string `json:"motivo"`
}

type paymentRequest struct {
	MetodoPago string `json:"metodo_pago"`
}

type setStateRequest struct {
	IDEstado int16  `json:"id_estado"`
	Estado   string `json:"estado"`
}

type lineResponse struct {
	ID             uuid.UUID `json:"id"`
	IDProducto     uuid.UUID `json:"id_producto"`
	Producto       string    `json:"producto"`
	Cantidad       int32     `json:"cantidad"`
	Comentario     *string   `json:"comentario"`
	PrecioUnitario string    `json:"precio_unitario"`
	Subtotal       string    `json:"subtotal"`
}

type paymentResponse struct {
	ID         uuid.UUID `json:"id"`
	Monto      string    `json:"monto"`
	MetodoPago string    `json:"metodo_pago"`
	FechaPago  time.Time `json:"fecha_pago"`
}

type orderResponse struct {
	ID                uuid.UUID        `json:"id"`
	Numero            int64            `json:"numero"`
	IDEstado          int16            `json:"id_estado"`
	Estado            string           `json:"estado"`
	Color             string           `json:"color,omitempty"`
	IDUsuarioMesero   *uuid.UUID       `json:"id_usuario_mesero"`
	Mesero            string           `json:"mesero,omitempty"`
	FechaHoraRegistro time.Time        `json:"fecha_hora_registro"`
	Detalles          []lineResponse   `json:"detalles"`
	Total             string           `json:"total"`
	Pago              *paymentResponse `json:"pago,omitempty"`
}

type scheduleResponse struct {
	Inicio string `json:"inicio"`
	Fin    string `json:"fin"`
}

// rulesResponse is the waiter rule configuration shown next to order lists.
type rulesResponse struct {
	EstadosCancelables []string                     `json:"estados_cancelables"`
	EstadosEditables   []string                     `json:"estados_editables"`
	TiemposPorEstado   map[string]service.StateRule `json:"tiempos_por_estado"`
	HorarioAtencion    map[string]scheduleResponse  `json:"horario_atencion"`
}

type orderListResponse struct {
	Pedidos []orderResponse `json:"pedidos"`
	rulesResponse
	Now time.Time `json:"now"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	items, ok := decodeOrderItems(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Create(r.Context(), actor, items)
	if err != nil {
		writeOrderError(w, err, "create order", msgUnexpected)
		return
	}

	writeJSON(w, http.StatusCreated, toResultResponse(result))
}

// Update handles PUT /orders/{id}. An identical line set returns 200
// with the order unchanged.
func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	items, ok := decodeOrderItems(w, r)
	if !ok {
		return
	}

	result, err := h.svc.Edit(r.Context(), actor, id, items)
	if err != nil {
		writeOrderError(w, err, "edit order", msgUnexpected)
		return
	}

	writeJSON(w, http.StatusOK, toResultResponse(result))
}

// Cancel handles POST /orders/{id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "cancel order", h.svc.Cancel)
}

// Redo handles POST /orders/{id}/redo.
func (h *OrderHandler) Redo(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "redo order", h.svc.Redo)
}

// Restore handles POST /orders/{id}/restore.
func (h *OrderHandler) Restore(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "restore order", h.svc.Restore)
}

// Unpay handles DELETE /orders/{id}/payment.
func (h *OrderHandler) Unpay(w http.ResponseWriter, r *http.Request) {
	h.runTransition(w, r, "unmark paid", h.svc.UnmarkPaid)
}

// Reject handles POST /orders/{id}/reject. The body is optional.
func (h *OrderHandler) Reject(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req rejectRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
			return
		}
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.Motivo)) > maxRejectReason {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("motivo admite como máximo %d caracteres.", maxRejectReason),
		})
		return
	}

	result, err := h.svc.Reject(r.Context(), actor, id, req.Motivo)
	if err != nil {
		writeOrderError(w, err, "reject order", "")
		return
	}
	writeJSON(w, http.StatusOK, toResultResponse(result))
}

// Pay handles POST /orders/{id}/payment.
func (h *OrderHandler) Pay(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}
	if req.MetodoPago == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "metodo_pago es obligatorio."})
		return
	}

	result, err := h.svc.MarkPaid(r.Context(), actor, id, req.MetodoPago)
	if err != nil {
		writeOrderError(w, err, "mark paid", "")
		return
	}
	writeJSON(w, http.StatusCreated, toResultResponse(result))
}

// SetState handles PATCH /orders/{id}/state. The target is given by id
// or by state name.
func (h *OrderHandler) SetState(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	estado, ok := decodeTargetState(w, r)
	if !ok {
		return
	}

	result, err := h.svc.SetState(r.Context(), actor, id, estado)
	if err != nil {
		writeOrderError(w, err, "set order state", "")
		return
	}
	writeJSON(w, http.StatusOK, toResultResponse(result))
}

// Get handles GET /orders/{id}. Waiters only see their own orders.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	pedido, err := h.store.GetPedidoVista(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": orderText(service.ErrOrderNotFound)})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	if actor.IsWaiter() && (!pedido.IDUsuarioMesero.Valid || uuid.UUID(pedido.IDUsuarioMesero.Bytes) != actor.ID) {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": orderText(service.ErrNotOwner)})
		return
	}

	orders, err := withLines(r.Context(), h.store, []database.PedidoVista{pedido})
	if err != nil {
		log.Printf("ERROR: list order lines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	resp := orders[0]

	pago, err := h.store.GetPagoByPedido(r.Context(), id)
	switch {
	case err == nil:
		p := toPaymentResponse(pago)
		resp.Pago = &p
	case !errors.Is(err, pgx.ErrNoRows):
		log.Printf("ERROR: get payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Mine handles GET /orders/mine: the caller's orders with the rules that
// govern what a waiter may still do with them.
func (h *OrderHandler) Mine(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	pedidos, err := h.store.ListPedidosVistaByMesero(r.Context(), actor.ID)
	if err != nil {
		log.Printf("ERROR: list my orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	h.writeOrderList(w, r, pedidos)
}

// List handles GET /orders (administrators).
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	pedidos, err := h.store.ListPedidosVista(r.Context())
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	h.writeOrderList(w, r, pedidos)
}

// Comanda handles GET /orders/{id}/comanda.pdf.
func (h *OrderHandler) Comanda(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	pedido, err := h.store.GetPedidoVista(r.Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": orderText(service.ErrOrderNotFound)})
			return
		}
		log.Printf("ERROR: get order for comanda: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	lines, err := h.store.ListDetallesByPedidos(r.Context(), []uuid.UUID{id})
	if err != nil {
		log.Printf("ERROR: list lines for comanda: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	c := export.Comanda{
		Numero: pedido.Numero,
		Fecha:  pedido.FechaHoraRegistro.In(h.loc),
		Mesero: meseroName(pedido.MeseroNombre),
		Estado: pedido.NombreEstado,
	}
	for _, l := range lines {
		c.Lines = append(c.Lines, export.ComandaLine{
			Cantidad:       l.Cantidad,
			Producto:       l.ProductoNombre,
			Comentario:     l.Comentario.String,
			PrecioUnitario: numericToDecimal(l.PrecioUnitario),
		})
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, c.Filename()))
	if err := export.WriteComanda(w, c); err != nil {
		log.Printf("ERROR: render comanda #%d: %v", pedido.Numero, err)
	}
}

// --- Helpers ---

type transitionFunc func(ctx context.Context, actor service.Actor, id uuid.UUID) (*service.OrderResult, error)

func (h *OrderHandler) runTransition(w http.ResponseWriter, r *http.Request, op string, fn transitionFunc) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	result, err := fn(r.Context(), actor, id)
	if err != nil {
		writeOrderError(w, err, op, "")
		return
	}
	writeJSON(w, http.StatusOK, toResultResponse(result))
}

func (h *OrderHandler) writeOrderList(w http.ResponseWriter, r *http.Request, pedidos []database.PedidoVista) {
	orders, err := withLines(r.Context(), h.store, pedidos)
	if err != nil {
		log.Printf("ERROR: list order lines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	rules, err := service.LoadOrderRules(r.Context(), h.store)
	if err != nil {
		log.Printf("ERROR: load order rules: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Pedidos:       orders,
		rulesResponse: toRulesResponse(rules),
		Now:           h.now().In(h.loc),
	})
}

func decodeOrderItems(w http.ResponseWriter, r *http.Request) ([]service.LineInput, bool) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return nil, false
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": orderText(service.ErrEmptyItems)})
		return nil, false
	}

	items := make([]service.LineInput, len(req.Items))
	for i, it := range req.Items {
		pid, err := uuid.Parse(it.ProductID)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, "id_producto inválido.")})
			return nil, false
		}
		if it.Cantidad < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": formatItemError(i, orderText(service.ErrInvalidQuantity))})
			return nil, false
		}
		if utf8.RuneCountInString(strings.TrimSpace(it.Comentario)) > maxLineComment {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": formatItemError(i, fmt.Sprintf("comentario admite como máximo %d caracteres.", maxLineComment)),
			})
			return nil, false
		}
		items[i] = service.LineInput{ProductID: pid, Quantity: it.Cantidad, Comment: it.Comentario}
	}
	return items, true
}

// decodeTargetState reads a target state given as id_estado or estado name.
func decodeTargetState(w http.ResponseWriter, r *http.Request) (int16, bool) {
	var req setStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return 0, false
	}
	if req.IDEstado != 0 {
		return req.IDEstado, true
	}
	if req.Estado == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "estado es obligatorio."})
		return 0, false
	}
	id, ok := enum.EstadoByNombre(req.Estado)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": orderText(service.ErrInvalidState)})
		return 0, false
	}
	return id, true
}

func formatItemError(idx int, msg string) string {
	return fmt.Sprintf("items[%d]: %s", idx, msg)
}

// writeOrderError maps order workflow errors to HTTP statuses. Unexpected
// errors are logged; fallback replaces the generic 500 message when set.
func writeOrderError(w http.ResponseWriter, err error, op, fallback string) {
	var stock *service.InsufficientStockError
	if errors.As(err, &stock) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": stockText(stock.Producto)})
		return
	}
	if status, text, ok := lookupError(orderErrors, err); ok {
		writeJSON(w, status, map[string]string{"error": text})
		return
	}
	if isCheckViolation(err) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "Stock insuficiente."})
		return
	}

	log.Printf("ERROR: %s: %v", op, err)
	msg := msgInternal
	if fallback != "" {
		msg = fallback
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msg})
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

// auditWriter is the audit slice of *database.Queries used by the catalog handlers.
type auditWriter interface {
	CreateAuditoria(ctx context.Context, arg database.CreateAuditoriaParams) (database.Auditoria, error)
}

// recordAudit appends an audit row for userID. A failure is logged and
// does not fail the request.
func recordAudit(ctx context.Context, store auditWriter, userID uuid.UUID, accion, desc string) {
	_, err := store.CreateAuditoria(ctx, database.CreateAuditoriaParams{
		IDUsuario:   pgtype.UUID{Bytes: userID, Valid: true},
		Accion:      accion,
		Descripcion: pgtype.Text{String: desc, Valid: true},
	})
	if err != nil {
		log.Printf("WARNING: audit %q: %v", accion, err)
	}
}

// actorFromRequest reads the authenticated caller. It writes 401 and
// returns false when there is none.
func actorFromRequest(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": msgNotAuthenticated})
		return service.Actor{}, false
	}
	return service.Actor{ID: claims.UserID, Name: claims.Name, Role: claims.Role}, true
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": name + " inválido."})
		return uuid.Nil, false
	}
	return id, true
}

// withLines attaches live lines to each order with one query.
func withLines(ctx context.Context, store interface {
	ListDetallesByPedidos(ctx context.Context, pedidoIDs []uuid.UUID) ([]database.DetalleVista, error)
}, pedidos []database.PedidoVista) ([]orderResponse, error) {
	out := make([]orderResponse, len(pedidos))
	if len(pedidos) == 0 {
		return out, nil
	}

	ids := make([]uuid.UUID, len(pedidos))
	for i, p := range pedidos {
		ids[i] = p.ID
	}
	lines, err := store.ListDetallesByPedidos(ctx, ids)
	if err != nil {
		return nil, err
	}
	byPedido := make(map[uuid.UUID][]database.DetalleVista, len(pedidos))
	for _, l := range lines {
		byPedido[l.IDPedido] = append(byPedido[l.IDPedido], l)
	}

	for i, p := range pedidos {
		out[i] = toOrderResponse(p, byPedido[p.ID])
	}
	return out, nil
}

func toOrderResponse(p database.PedidoVista, lines []database.DetalleVista) orderResponse {
	resp := orderResponse{
		ID:                p.ID,
		Numero:            p.Numero,
		IDEstado:          p.EstadoActual,
		Estado:            p.NombreEstado,
		Color:             p.ColorCodigo,
		IDUsuarioMesero:   optionalUUID(p.IDUsuarioMesero),
		Mesero:            meseroName(p.MeseroNombre),
		FechaHoraRegistro: p.FechaHoraRegistro,
	}
	resp.Detalles, resp.Total = toLineResponses(lines)
	return resp
}

func toResultResponse(res *service.OrderResult) orderResponse {
	o := res.Order
	resp := orderResponse{
		ID:                o.ID,
		Numero:            o.Numero,
		IDEstado:          o.EstadoActual,
		Estado:            enum.EstadoNombre(o.EstadoActual),
		IDUsuarioMesero:   optionalUUID(o.IDUsuarioMesero),
		FechaHoraRegistro: o.FechaHoraRegistro,
	}
	resp.Detalles, resp.Total = toLineResponses(res.Lines)
	if res.Payment != nil {
		p := toPaymentResponse(*res.Payment)
		resp.Pago = &p
	}
	return resp
}

func toLineResponses(lines []database.DetalleVista) ([]lineResponse, string) {
	out := make([]lineResponse, len(lines))
	total := decimal.Zero
	for i, l := range lines {
		price := numericToDecimal(l.PrecioUnitario)
		sub := price.Mul(decimal.NewFromInt32(l.Cantidad))
		total = total.Add(sub)
		out[i] = lineResponse{
			ID:             l.ID,
			IDProducto:     l.IDProducto,
			Producto:       l.ProductoNombre,
			Cantidad:       l.Cantidad,
			PrecioUnitario: price.StringFixed(2),
			Subtotal:       sub.StringFixed(2),
		}
		if l.Comentario.Valid {
			c := l.Comentario.String
			out[i].Comentario = &c
		}
	}
	return out, total.StringFixed(2)
}

func toPaymentResponse(p database.Pago) paymentResponse {
	return paymentResponse{
		ID:         p.ID,
		Monto:      numericToString(p.Monto),
		MetodoPago: p.MetodoPago,
		FechaPago:  p.FechaPago,
	}
}

func toRulesResponse(rules *service.OrderRules) rulesResponse {
	resp := rulesResponse{
		EstadosCancelables: rules.Cancelables(),
		EstadosEditables:   rules.Editables(),
		TiemposPorEstado:   make(map[string]service.StateRule, len(enum.Estados)),
		HorarioAtencion:    make(map[string]scheduleResponse, len(rules.Hours)),
	}
	if resp.EstadosCancelables == nil {
		resp.EstadosCancelables = []string{}
	}
	if resp.EstadosEditables == nil {
		resp.EstadosEditables = []string{}
	}
	for _, id := range enum.Estados {
		name := enum.EstadoNombre(id)
		resp.TiemposPorEstado[name] = rules.Rule(name)
	}
	for dia, s := range rules.Hours {
		resp.HorarioAtencion[dia] = scheduleResponse{
			Inicio: service.FormatTimeOfDay(s.Start),
			Fin:    service.FormatTimeOfDay(s.End),
		}
	}
	return resp
}

// meseroName renders a waiter name, "Sin asignar" when there is none.
func meseroName(t pgtype.Text) string {
	if !t.Valid || strings.TrimSpace(t.String) == "" {
		return "Sin asignar"
	}
	return t.String
}

func optionalUUID(id pgtype.UUID) *uuid.UUID {
	if !id.Valid {
		return nil
	}
	u := uuid.UUID(id.Bytes)
	return &u
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func numericToString(n pgtype.Numeric) string {
	return numericToDecimal(n).StringFixed(2)
}
