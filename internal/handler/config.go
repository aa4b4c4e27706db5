package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/service"
)

// ConfigStore defines the database methods needed by configuration handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ConfigStore interface {
	service.RulesStore
	ListEstadosPedido(ctx context.Context) ([]database.Estadopedido, error)
	UpsertConfigEstadoPedido(ctx context.Context, arg database.UpsertConfigEstadoPedidoParams) error
	UpsertConfiguracion(ctx context.Context, arg database.UpsertConfiguracionParams) error
	UpsertHorario(ctx context.Context, arg database.UpsertHorarioParams) error
	CreateAuditoria(ctx context.Context, arg database.CreateAuditoriaParams) (database.Auditoria, error)
}

// ConfigHandler handles order-rule and attention-hour configuration.
type ConfigHandler struct {
	store ConfigStore
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(store ConfigStore) *ConfigHandler {
	return &ConfigHandler{store: store}
}

// RegisterStateRoutes registers GET /order-states for any authenticated user.
func (h *ConfigHandler) RegisterStateRoutes(r chi.Router) {
	r.Get("/order-states", h.ListOrderStates)
}

// RegisterRoutes registers configuration endpoints.
// Mounted at /config inside the Administrador group.
func (h *ConfigHandler) RegisterRoutes(r chi.Router) {
	r.Get("/rules", h.GetRules)
	r.Get("/states", h.GetStateRules)
	r.Put("/states", h.UpdateStateRules)
	r.Get("/defaults", h.GetDefaults)
	r.Put("/defaults", h.UpdateDefaults)
	r.Get("/hours", h.GetHours)
	r.Put("/hours", h.UpdateHours)
}

// --- Request / Response types ---

type orderStateResponse struct {
	ID           int16  `json:"id"`
	NombreEstado string `json:"nombre_estado"`
	ColorCodigo  string `json:"color_codigo"`
}

type stateRuleEntry struct {
	Estado        string `json:"estado"`
	PuedeCancelar bool   `json:"puede_cancelar"`
	PuedeEditar   bool   `json:"puede_editar"`
}

// stateRulesBody is both the GET response and the PUT body of /config/states.
// One cancel window and one edit window apply to every listed state.
type stateRulesBody struct {
	TiempoCancelacionMinutos *int32           `json:"tiempo_cancelacion_minutos"`
	TiempoEdicionMinutos     *int32           `json:"tiempo_edicion_minutos"`
	Estados                  []stateRuleEntry `json:"estados"`
}

type defaultsResponse struct {
	TiempoCancelacionMinutos int      `json:"tiempo_cancelacion_minutos"`
	TiempoEdicionMinutos     int      `json:"tiempo_edicion_minutos"`
	EstadosCancelables       []string `json:"estados_cancelables"`
	EstadosEditables         []string `json:"estados_editables"`
	TodosLosEstados          []string `json:"todos_los_estados"`
}

type updateDefaultsRequest struct {
	TiempoCancelacionMinutos *int      `json:"tiempo_cancelacion_minutos"`
	TiempoEdicionMinutos     *int      `json:"tiempo_edicion_minutos"`
	EstadosCancelables       *[]string `json:"estados_cancelables"`
	EstadosEditables         *[]string `json:"estados_editables"`
}

type horarioEntry struct {
	Dia        string `json:"dia"`
	HoraInicio string `json:"hora_inicio"`
	HoraFin    string `json:"hora_fin"`
}

type updateHoursRequest struct {
	Horarios []horarioEntry `json:"horarios"`
}

// --- Handlers ---

// ListOrderStates returns every order state with its display colour.
func (h *ConfigHandler) ListOrderStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.store.ListEstadosPedido(r.Context())
	if err != nil {
		log.Printf("ERROR: list order states: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	resp := make([]orderStateResponse, len(states))
	for i, s := range states {
		resp[i] = orderStateResponse{ID: s.ID, NombreEstado: s.NombreEstado, ColorCodigo: s.ColorCodigo}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRules returns the effective waiter rules, defaults applied.
func (h *ConfigHandler) GetRules(w http.ResponseWriter, r *http.Request) {
	rules, err := service.LoadOrderRules(r.Context(), h.store)
	if err != nil {
		log.Printf("ERROR: load order rules: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	writeJSON(w, http.StatusOK, toRulesResponse(rules))
}

// GetStateRules returns the per-state rule rows. The windows are read from
// the first row, falling back to the global defaults when there is none.
func (h *ConfigHandler) GetStateRules(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListConfigEstadoPedidos(r.Context())
	if err != nil {
		log.Printf("ERROR: list state rules: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	defaults := service.DefaultOrderRules()
	cancel := int32(defaults.DefaultCancelMinutes)
	edit := int32(defaults.DefaultEditMinutes)
	if len(rows) > 0 {
		cancel = rows[0].TiempoCancelacionMinutos
		edit = rows[0].TiempoEdicionMinutos
	}

	resp := stateRulesBody{
		TiempoCancelacionMinutos: &cancel,
		TiempoEdicionMinutos:     &edit,
		Estados:                  make([]stateRuleEntry, len(rows)),
	}
	for i, row := range rows {
		resp.Estados[i] = stateRuleEntry{
			Estado:        row.Estado,
			PuedeCancelar: row.PuedeCancelar,
			PuedeEditar:   row.PuedeEditar,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateStateRules upserts one row per listed state.
func (h *ConfigHandler) UpdateStateRules(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req stateRulesBody
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}

	if req.TiempoCancelacionMinutos == nil || req.TiempoEdicionMinutos == nil || len(req.Estados) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tiempo_cancelacion_minutos, tiempo_edicion_minutos y estados son obligatorios."})
		return
	}
	if *req.TiempoCancelacionMinutos < 0 || *req.TiempoEdicionMinutos < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Los minutos deben ser mayores o iguales a 0."})
		return
	}
	for _, e := range req.Estados {
		if _, ok := enum.EstadoByNombre(e.Estado); !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Estado desconocido %q.", e.Estado)})
			return
		}
	}

	for _, e := range req.Estados {
		err := h.store.UpsertConfigEstadoPedido(r.Context(), database.UpsertConfigEstadoPedidoParams{
			Estado:                   e.Estado,
			TiempoCancelacionMinutos: *req.TiempoCancelacionMinutos,
			TiempoEdicionMinutos:     *req.TiempoEdicionMinutos,
			PuedeCancelar:            e.PuedeCancelar,
			PuedeEditar:              e.PuedeEditar,
		})
		if err != nil {
			log.Printf("ERROR: upsert state rule %q: %v", e.Estado, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
			return
		}
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionActualizarConfig,
		fmt.Sprintf("%s actualizó las reglas de %d estados de pedido", actor.Name, len(req.Estados)))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Configuración actualizada correctamente"})
}

// GetDefaults returns the global rule defaults.
func (h *ConfigHandler) GetDefaults(w http.ResponseWriter, r *http.Request) {
	rules, err := service.LoadOrderRules(r.Context(), h.store)
	if err != nil {
		log.Printf("ERROR: load order rules: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	resp := defaultsResponse{
		TiempoCancelacionMinutos: rules.DefaultCancelMinutes,
		TiempoEdicionMinutos:     rules.DefaultEditMinutes,
		EstadosCancelables:       nonNil(rules.DefaultCancelables),
		EstadosEditables:         nonNil(rules.DefaultEditables),
		TodosLosEstados:          make([]string, len(enum.Estados)),
	}
	for i, id := range enum.Estados {
		resp.TodosLosEstados[i] = enum.EstadoNombre(id)
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateDefaults writes the fields present in the body.
func (h *ConfigHandler) UpdateDefaults(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req updateDefaultsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}

	var updates []database.UpsertConfiguracionParams
	for _, m := range []struct {
		clave string
		val   *int
	}{
		{service.ConfigTiempoCancelacion, req.TiempoCancelacionMinutos},
		{service.ConfigTiempoEdicion, req.TiempoEdicionMinutos},
	} {
		if m.val == nil {
			continue
		}
		if *m.val < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": m.clave + " debe ser mayor o igual a 0."})
			return
		}
		updates = append(updates, database.UpsertConfiguracionParams{Clave: m.clave, Valor: strconv.Itoa(*m.val)})
	}
	for _, l := range []struct {
		clave   string
		estados *[]string
	}{
		{service.ConfigEstadosCancelable, req.EstadosCancelables},
		{service.ConfigEstadosEditables, req.EstadosEditables},
	} {
		if l.estados == nil {
			continue
		}
		for _, e := range *l.estados {
			if _, ok := enum.EstadoByNombre(e); !ok {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Estado desconocido %q.", e)})
				return
			}
		}
		b, err := json.Marshal(nonNil(*l.estados))
		if err != nil {
			log.Printf("ERROR: encode %s: %v", l.clave, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
			return
		}
		updates = append(updates, database.UpsertConfiguracionParams{Clave: l.clave, Valor: string(b)})
	}

	if len(updates) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No hay cambios que guardar."})
		return
	}

	for _, u := range updates {
		if err := h.store.UpsertConfiguracion(r.Context(), u); err != nil {
			log.Printf("ERROR: upsert configuracion %s: %v", u.Clave, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
			return
		}
		recordAudit(r.Context(), h.store, actor.ID, enum.AccionActualizarConfig,
			fmt.Sprintf("%s cambió %s a %s", actor.Name, u.Clave, u.Valor))
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Configuración actualizada correctamente"})
}

// GetHours returns the attention hours, one entry per configured day.
func (h *ConfigHandler) GetHours(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListHorarios(r.Context())
	if err != nil {
		log.Printf("ERROR: list horarios: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	// Ordered Domingo..Sábado regardless of insertion order.
	resp := make([]horarioEntry, 0, len(rows))
	for _, dia := range enum.DiasSemana {
		for _, row := range rows {
			if row.Dia != dia {
				continue
			}
			resp = append(resp, horarioEntry{
				Dia:        row.Dia,
				HoraInicio: service.FormatTimeOfDay(time.Duration(row.HoraInicio.Microseconds) * time.Microsecond),
				HoraFin:    service.FormatTimeOfDay(time.Duration(row.HoraFin.Microseconds) * time.Microsecond),
			})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// UpdateHours upserts the listed days. Days not listed keep their schedule.
func (h *ConfigHandler) UpdateHours(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	var req updateHoursRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msgInvalidBody})
		return
	}
	if len(req.Horarios) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "horarios es obligatorio."})
		return
	}

	params := make([]database.UpsertHorarioParams, len(req.Horarios))
	for i, e := range req.Horarios {
		if !isDiaSemana(e.Dia) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("Día desconocido %q.", e.Dia)})
			return
		}
		inicio, err := service.ParseTimeOfDay(e.HoraInicio)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hora_inicio debe tener el formato HH:MM:SS."})
			return
		}
		fin, err := service.ParseTimeOfDay(e.HoraFin)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hora_fin debe tener el formato HH:MM:SS."})
			return
		}
		if fin.Microseconds <= inicio.Microseconds {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "hora_fin debe ser posterior a hora_inicio."})
			return
		}
		params[i] = database.UpsertHorarioParams{Dia: e.Dia, HoraInicio: inicio, HoraFin: fin}
	}

	for _, p := range params {
		if err := h.store.UpsertHorario(r.Context(), p); err != nil {
			log.Printf("ERROR: upsert horario %s: %v", p.Dia, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
			return
		}
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionActualizarHorario,
		fmt.Sprintf("%s actualizó el horario de atención de %d días", actor.Name, len(params)))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Horarios actualizados correctamente"})
}

// --- Helpers ---

func isDiaSemana(dia string) bool {
	for _, d := range enum.DiasSemana {
		if d == dia {
			return true
		}
	}
	return false
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
