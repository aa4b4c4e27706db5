package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/export"
	"github.com/typica-pos/api/internal/forecast"
)

const dateLayout = "2006-01-02"

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	VentasPagadas(ctx context.Context, arg database.VentasPagadasParams) (database.VentasPagadasRow, error)
	VentasPorDia(ctx context.Context, arg database.VentasPorDiaParams) ([]database.VentasPorDiaRow, error)
	TopProductos(ctx context.Context, arg database.TopProductosParams) ([]database.TopProductosRow, error)
	ListLineasExport(ctx context.Context, arg database.ListLineasExportParams) ([]database.ListLineasExportRow, error)
	ListAuditoria(ctx context.Context, arg database.ListAuditoriaParams) ([]database.ListAuditoriaRow, error)
	ListLogSeguridad(ctx context.Context, arg database.ListLogSeguridadParams) ([]database.ListLogSeguridadRow, error)
}

// ReportsHandler handles the dashboard, exports and audit trails.
type ReportsHandler struct {
	store        ReportsStore
	forecastPath string
	loc          *time.Location
	now          func() time.Time
}

// NewReportsHandler creates a new ReportsHandler. forecastPath is the JSON
// artifact shown on the dashboard.
func NewReportsHandler(store ReportsStore, forecastPath string, loc *time.Location) *ReportsHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReportsHandler{store: store, forecastPath: forecastPath, loc: loc, now: time.Now}
}

// RegisterRoutes registers administrator report endpoints at the root.
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/dashboard", h.Dashboard)
	r.Get("/exports/orders.xlsx", h.ExportOrders)
	r.Get("/audit", h.Audit)
	r.Get("/security-log", h.SecurityLog)
}

// --- Response types ---

type dashboardMetrics struct {
	VentasSemana      string `json:"ventas_semana"`
	ClientesAtendidos int64  `json:"clientes_atendidos"`
}

type dailySalesResponse struct {
	Dia    string `json:"dia"`
	Ventas int64  `json:"ventas"`
}

type topProductResponse struct {
	Nombre       string `json:"nombre"`
	TotalVendido int64  `json:"total_vendido"`
}

type dashboardResponse struct {
	Forecast              []forecast.Point     `json:"forecast"`
	PorProducto           json.RawMessage      `json:"por_producto"`
	ProductoTendencia     forecast.Trend       `json:"producto_tendencia"`
	ProductosEstacionales json.RawMessage      `json:"productos_estacionales"`
	AlertasStock          json.RawMessage      `json:"alertas_stock"`
	Metrics               dashboardMetrics     `json:"metrics"`
	VentasDiarias         []dailySalesResponse `json:"ventas_diarias"`
	TopProductos          []topProductResponse `json:"top_productos"`
}

type auditResponse struct {
	ID          uuid.UUID  `json:"id"`
	Usuario     string     `json:"usuario"`
	IDPedido    *uuid.UUID `json:"id_pedido"`
	Accion      string     `json:"accion"`
	Descripcion string     `json:"descripcion"`
	FechaHora   time.Time  `json:"fecha_hora"`
}

type securityLogResponse struct {
	ID          uuid.UUID `json:"id"`
	Usuario     string    `json:"usuario"`
	Evento      string    `json:"evento"`
	Descripcion string    `json:"descripcion"`
	IP          string    `json:"ip"`
	FechaEvento time.Time `json:"fecha_evento"`
}

// --- Handlers ---

// Dashboard handles GET /dashboard. Forecast sections come from the
// artifact; sales figures only count paid orders.
func (h *ReportsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	now := h.now().In(h.loc)
	art := forecast.Load(h.forecastPath)

	semana, err := h.store.VentasPagadas(ctx, database.VentasPagadasParams{
		EstadoPagado: enum.EstadoPagado,
		Desde:        startOfWeek(now),
		Hasta:        now,
	})
	if err != nil {
		log.Printf("ERROR: weekly sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	dias, err := h.store.VentasPorDia(ctx, database.VentasPorDiaParams{
		EstadoPagado: enum.EstadoPagado,
		Desde:        now.AddDate(0, 0, -90),
		Hasta:        now,
		Zona:         h.loc.String(),
	})
	if err != nil {
		log.Printf("ERROR: daily sales: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	// Previous calendar month.
	thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, h.loc)
	top, err := h.store.TopProductos(ctx, database.TopProductosParams{
		EstadoPagado: enum.EstadoPagado,
		Desde:        thisMonth.AddDate(0, -1, 0),
		Hasta:        thisMonth,
		Limit:        5,
	})
	if err != nil {
		log.Printf("WARNING: top products: %v", err)
		top = nil
	}

	resp := dashboardResponse{
		Forecast:              art.General,
		PorProducto:           art.PorProducto,
		ProductoTendencia:     art.ProductoTendencia,
		ProductosEstacionales: art.ProductosEstacionales,
		AlertasStock:          art.AlertasStock,
		Metrics: dashboardMetrics{
			VentasSemana:      numericToString(semana.Total),
			ClientesAtendidos: semana.Clientes,
		},
		VentasDiarias: make([]dailySalesResponse, 0, len(dias)),
		TopProductos:  make([]topProductResponse, len(top)),
	}
	for _, d := range dias {
		if !d.Dia.Valid {
			continue
		}
		resp.VentasDiarias = append(resp.VentasDiarias, dailySalesResponse{Dia: d.Dia.Time.Format(dateLayout), Ventas: d.Ventas})
	}
	for i, p := range top {
		resp.TopProductos[i] = topProductResponse{Nombre: p.Nombre, TotalVendido: p.TotalVendido}
	}

	writeJSON(w, http.StatusOK, resp)
}

// ExportOrders handles GET /exports/orders.xlsx. Filters: estado,
// numero, fecha_inicio, fecha_fin, tiempo, mesero.
func (h *ReportsHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	params, err := h.exportParams(r)
	if err != nil {
		writeFilterError(w, err)
		return
	}

	lines, err := h.store.ListLineasExport(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list export lines: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	rows := make([]export.OrderRow, len(lines))
	for i, l := range lines {
		rows[i] = export.OrderRow{
			Numero:         l.Numero,
			Fecha:          l.FechaHoraRegistro.In(h.loc),
			Mesero:         meseroName(l.MeseroNombre),
			Estado:         l.NombreEstado,
			Producto:       l.ProductoNombre,
			Cantidad:       l.Cantidad,
			Comentario:     l.Comentario.String,
			PrecioUnitario: numericToDecimal(l.PrecioUnitario),
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.OrdersFilename))
	if err := export.WriteOrdersXLSX(w, rows); err != nil {
		log.Printf("ERROR: write orders xlsx: %v", err)
	}
}

// Audit handles GET /audit?limit=&offset=.
func (h *ReportsHandler) Audit(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r)
	rows, err := h.store.ListAuditoria(r.Context(), database.ListAuditoriaParams{Limit: limit, Offset: offset})
	if err != nil {
		log.Printf("ERROR: list audit: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	resp := make([]auditResponse, len(rows))
	for i, row := range rows {
		resp[i] = auditResponse{
			ID:          row.ID,
			Usuario:     row.UsuarioNombre.String,
			IDPedido:    optionalUUID(row.IDPedido),
			Accion:      row.Accion,
			Descripcion: row.Descripcion.String,
			FechaHora:   row.FechaHora,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// SecurityLog handles GET /security-log?limit=&offset=.
func (h *ReportsHandler) SecurityLog(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePage(r)
	rows, err := h.store.ListLogSeguridad(r.Context(), database.ListLogSeguridadParams{Limit: limit, Offset: offset})
	if err != nil {
		log.Printf("ERROR: list security log: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	resp := make([]securityLogResponse, len(rows))
	for i, row := range rows {
		resp[i] = securityLogResponse{
			ID:          row.ID,
			Usuario:     row.UsuarioNombre.String,
			Evento:      row.Evento,
			Descripcion: row.Descripcion.String,
			IP:          row.Ip.String,
			FechaEvento: row.FechaEvento,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// window is an inclusive time range; zero bounds are open.
type window struct {
	from, to time.Time
}

// narrow intersects w with [from, to].
func (w *window) narrow(from, to time.Time) {
	if !from.IsZero() && (w.from.IsZero() || from.After(w.from)) {
		w.from = from
	}
	if !to.IsZero() && (w.to.IsZero() || to.Before(w.to)) {
		w.to = to
	}
}

func (h *ReportsHandler) exportParams(r *http.Request) (database.ListLineasExportParams, error) {
	q := r.URL.Query()
	var params database.ListLineasExportParams

	if s := q.Get("estado"); s != "" {
		id, ok := enum.EstadoByNombre(s)
		if !ok {
			return params, errBadEstado
		}
		params.EstadoActual = pgtype.Int2{Int16: id, Valid: true}
	}
	if s := q.Get("numero"); s != "" {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return params, errBadNumero
		}
		params.Numero = pgtype.Int8{Int64: n, Valid: true}
	}
	if s := strings.TrimSpace(q.Get("mesero")); s != "" {
		params.Mesero = pgtype.Text{String: s, Valid: true}
	}

	win, err := exportWindow(q.Get("tiempo"), q.Get("fecha_inicio"), q.Get("fecha_fin"), h.now().In(h.loc), h.loc)
	if err != nil {
		return params, err
	}
	if !win.from.IsZero() {
		params.Desde = pgtype.Timestamptz{Time: win.from, Valid: true}
	}
	if !win.to.IsZero() {
		params.Hasta = pgtype.Timestamptz{Time: win.to, Valid: true}
	}
	return params, nil
}

// exportWindow resolves the date filters of the order export. fecha_inicio
// and fecha_fin are whole local days; tiempo narrows the range further.
func exportWindow(tiempo, inicio, fin string, now time.Time, loc *time.Location) (window, error) {
	var win window

	if inicio != "" {
		t, err := time.ParseInLocation(dateLayout, inicio, loc)
		if err != nil {
			return win, fmt.Errorf("%w: %v", errBadStartDate, err)
		}
		win.from = t
	}
	if fin != "" {
		t, err := time.ParseInLocation(dateLayout, fin, loc)
		if err != nil {
			return win, fmt.Errorf("%w: %v", errBadEndDate, err)
		}
		win.to = endOfDay(t)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	switch tiempo {
	case "":
	case "ultima_hora":
		win.narrow(now.Add(-time.Hour), time.Time{})
	case "ultimas_2":
		win.narrow(now.Add(-2*time.Hour), time.Time{})
	case "hoy":
		win.narrow(today, endOfDay(today))
	case "ultimas_24":
		win.narrow(now.Add(-24*time.Hour), time.Time{})
	case "ultimos_2_dias":
		win.narrow(now.AddDate(0, 0, -2), time.Time{})
	case "ultima_semana":
		win.narrow(now.AddDate(0, 0, -7), time.Time{})
	case "este_mes":
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		win.narrow(first, first.AddDate(0, 1, 0).Add(-time.Microsecond))
	case "rango_fechas":
		// the explicit dates already form the range
	default:
		return win, fmt.Errorf("%w: %s", errBadTiempo, tiempo)
	}
	return win, nil
}

func endOfDay(day time.Time) time.Time {
	return day.AddDate(0, 0, 1).Add(-time.Microsecond)
}

// startOfWeek returns Monday 00:00 of t's week in t's zone.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return d.AddDate(0, 0, -offset)
}

func parsePage(r *http.Request) (int32, int32) {
	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 200 {
		limit = 200
	}
	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			offset = v
		}
	}
	return int32(limit), int32(offset)
}

// parseDateRange reads fecha_inicio and fecha_fin (YYYY-MM-DD, local days)
// into a half-open [start, end) range. Without parameters the range is the
// last defaultDays days plus today.
func parseDateRange(r *http.Request, loc *time.Location, now time.Time, defaultDays int) (time.Time, time.Time, error) {
	now = now.In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	startDate := today.AddDate(0, 0, -defaultDays)
	endDate := today.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("fecha_inicio"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", errBadStartDate, err)
		}
		startDate = t
		// a single day unless fecha_fin widens it
		endDate = t.AddDate(0, 0, 1)
	}

	if s := r.URL.Query().Get("fecha_fin"); s != "" {
		t, err := time.ParseInLocation(dateLayout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", errBadEndDate, err)
		}
		endDate = t.AddDate(0, 0, 1)
	}

	if !startDate.Before(endDate) {
		return time.Time{}, time.Time{}, errDateOrder
	}

	return startDate, endDate, nil
}
