package handler

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
)

// CashierStore defines the database methods needed by cashier handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CashierStore interface {
	ListPedidosVista(ctx context.Context) ([]database.PedidoVista, error)
	ListDetallesByPedidos(ctx context.Context, pedidoIDs []uuid.UUID) ([]database.DetalleVista, error)
	ListFechasPedidos(ctx context.Context, zona string) ([]pgtype.Date, error)
	ResumenPagos(ctx context.Context, arg database.ResumenPagosParams) ([]database.ResumenPagosRow, error)
	ListPedidosPagados(ctx context.Context, arg database.ListPedidosPagadosParams) ([]database.ListPedidosPagadosRow, error)
}

// CashierHandler handles the cashier board and cash closing endpoints.
type CashierHandler struct {
	store CashierStore
	loc   *time.Location
	now   func() time.Time
}

// NewCashierHandler creates a new CashierHandler. Day boundaries are
// computed in loc.
func NewCashierHandler(store CashierStore, loc *time.Location) *CashierHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &CashierHandler{store: store, loc: loc, now: time.Now}
}

// RegisterRoutes registers cashier endpoints. Mounted at /cashier.
func (h *CashierHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.Board)
	r.Get("/dates", h.Dates)
	r.Get("/summary", h.Summary)
	r.Get("/paid", h.Paid)
}

// --- Request / Response types ---

type cashierBoardResponse struct {
	Pedidos []orderResponse `json:"pedidos"`
	Now     time.Time       `json:"now"`
}

type cashSummaryResponse struct {
	Efectivo string `json:"Efectivo"`
	Tarjeta  string `json:"Tarjeta"`
	QR       string `json:"QR"`
	Total    string `json:"Total"`
}

type paidOrderResponse struct {
	IDPedido   uuid.UUID      `json:"id_pedido"`
	Numero     int64          `json:"numero"`
	Monto      string         `json:"monto"`
	MetodoPago string         `json:"metodo_pago"`
	FechaPago  time.Time      `json:"fecha_pago"`
	Detalles   []lineResponse `json:"detalles"`
}

// --- Handlers ---

// Board handles GET /cashier/orders: every live order, newest first.
func (h *CashierHandler) Board(w http.ResponseWriter, r *http.Request) {
	pedidos, err := h.store.ListPedidosVista(r.Context())
	if err != nil {
		log.Printf("ERROR: list cashier orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	orders, err := withLines(r.Context(), h.store, pedidos)
	if err != nil {
		log.Printf("ERROR: list order lines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	writeJSON(w, http.StatusOK, cashierBoardResponse{Pedidos: orders, Now: h.now().In(h.loc)})
}

// Dates handles GET /cashier/dates: the distinct local days with orders,
// newest first.
func (h *CashierHandler) Dates(w http.ResponseWriter, r *http.Request) {
	fechas, err := h.store.ListFechasPedidos(r.Context(), h.loc.String())
	if err != nil {
		log.Printf("ERROR: list order dates: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	resp := make([]string, 0, len(fechas))
	for _, f := range fechas {
		if f.Valid {
			resp = append(resp, f.Time.Format(dateLayout))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Summary handles GET /cashier/summary?fecha_inicio=&fecha_fin=.
// Without parameters it covers today.
func (h *CashierHandler) Summary(w http.ResponseWriter, r *http.Request) {
	desde, hasta, err := parseDateRange(r, h.loc, h.now(), 0)
	if err != nil {
		writeFilterError(w, err)
		return
	}

	rows, err := h.store.ResumenPagos(r.Context(), database.ResumenPagosParams{Desde: desde, Hasta: hasta})
	if err != nil {
		log.Printf("ERROR: summarize payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	totals := map[string]decimal.Decimal{}
	total := decimal.Zero
	for _, row := range rows {
		amount := numericToDecimal(row.Total)
		totals[row.MetodoPago] = totals[row.MetodoPago].Add(amount)
		total = total.Add(amount)
	}

	writeJSON(w, http.StatusOK, cashSummaryResponse{
		Efectivo: totals[enum.MetodoEfectivo].StringFixed(2),
		Tarjeta:  totals[enum.MetodoTarjeta].StringFixed(2),
		QR:       totals[enum.MetodoQR].StringFixed(2),
		Total:    total.StringFixed(2),
	})
}

// Paid handles GET /cashier/paid?fecha_inicio=&fecha_fin=&metodo=: paid
// orders in the range with their lines.
func (h *CashierHandler) Paid(w http.ResponseWriter, r *http.Request) {
	desde, hasta, err := parseDateRange(r, h.loc, h.now(), 0)
	if err != nil {
		writeFilterError(w, err)
		return
	}

	var metodo pgtype.Text
	if m := r.URL.Query().Get("metodo"); m != "" {
		if !enum.IsMetodoPago(m) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Método de pago inválido."})
			return
		}
		metodo = pgtype.Text{String: m, Valid: true}
	}

	rows, err := h.store.ListPedidosPagados(r.Context(), database.ListPedidosPagadosParams{
		Desde:      desde,
		Hasta:      hasta,
		MetodoPago: metodo,
	})
	if err != nil {
		log.Printf("ERROR: list paid orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	resp := make([]paidOrderResponse, len(rows))
	if len(rows) == 0 {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	ids := make([]uuid.UUID, len(rows))
	for i, row := range rows {
		ids[i] = row.IDPedido
	}
	lines, err := h.store.ListDetallesByPedidos(r.Context(), ids)
	if err != nil {
		log.Printf("ERROR: list paid order lines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	byPedido := make(map[uuid.UUID][]database.DetalleVista, len(rows))
	for _, l := range lines {
		byPedido[l.IDPedido] = append(byPedido[l.IDPedido], l)
	}

	for i, row := range rows {
		detalles, _ := toLineResponses(byPedido[row.IDPedido])
		resp[i] = paidOrderResponse{
			IDPedido:   row.IDPedido,
			Numero:     row.Numero,
			Monto:      numericToString(row.Monto),
			MetodoPago: row.MetodoPago,
			FechaPago:  row.FechaPago,
			Detalles:   detalles,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
