package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/forecast"
)

// ForecastRunner runs the external forecast job.
// Satisfied by *forecast.Runner.
type ForecastRunner interface {
	Run(ctx context.Context) error
}

// PredictionStore defines the database methods needed by forecast handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PredictionStore interface {
	ListPredicciones(ctx context.Context, arg database.ListPrediccionesParams) ([]database.PrediccionVista, error)
	ListSugerencias(ctx context.Context, tipo pgtype.Text) ([]database.PrediccionVista, error)
	AceptarPrediccion(ctx context.Context, arg database.AccionPrediccionParams) (int64, error)
	RechazarPrediccion(ctx context.Context, arg database.AccionPrediccionParams) (int64, error)
	CreateAuditoria(ctx context.Context, arg database.CreateAuditoriaParams) (database.Auditoria, error)
}

// ForecastHandler handles the forecast job, its CSV export and the
// stored predictions.
type ForecastHandler struct {
	runner ForecastRunner
	store  PredictionStore
	output string
	loc    *time.Location
	now    func() time.Time
}

// NewForecastHandler creates a new ForecastHandler. output is the artifact
// path written by the runner.
func NewForecastHandler(runner ForecastRunner, store PredictionStore, output string, loc *time.Location) *ForecastHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ForecastHandler{runner: runner, store: store, output: output, loc: loc, now: time.Now}
}

// RegisterRoutes registers forecast endpoints at the root.
func (h *ForecastHandler) RegisterRoutes(r chi.Router) {
	r.Post("/forecast/run", h.Run)
	r.Get("/forecast/export.csv", h.ExportCSV)
	r.Get("/predictions", h.List)
	r.Get("/predictions/suggestions", h.Suggestions)
	r.Post("/predictions/{id}/accept", h.Accept)
	r.Post("/predictions/{id}/reject", h.Reject)
}

// --- Response types ---

type predictionResponse struct {
	ID                    uuid.UUID `json:"id"`
	IDProducto            uuid.UUID `json:"id_producto"`
	Producto              string    `json:"producto"`
	FechaPredicha         string    `json:"fecha_predicha"`
	DemandaPrevista       int32     `json:"demanda_prevista"`
	TipoSugerencia        *string   `json:"tipo_sugerencia"`
	SugerenciaDescripcion *string   `json:"sugerencia_descripcion"`
	FechaGenerada         time.Time `json:"fecha_generada"`
	Aceptado              bool      `json:"aceptado"`
}

type predictionSummary struct {
	TotalPredicciones int     `json:"total_predicciones"`
	DemandaTotal      int64   `json:"demanda_total"`
	PromedioDiario    float64 `json:"promedio_diario"`
	ProductosUnicos   int     `json:"productos_unicos"`
}

type predictionListResponse struct {
	Predicciones []predictionResponse `json:"predicciones"`
	Resumen      predictionSummary    `json:"resumen"`
}

type suggestionListResponse struct {
	Sugerencias      []predictionResponse `json:"sugerencias"`
	TiposDisponibles map[string]string    `json:"tipos_disponibles"`
}

var tipoSugerenciaLabels = map[string]string{
	enum.SugerenciaStockCritico:     "Stock Crítico",
	enum.SugerenciaIncrementarStock: "Incrementar Stock",
	enum.SugerenciaMantenerStock:    "Mantener Stock",
	enum.SugerenciaReducirStock:     "Reducir Stock",
}

// --- Handlers ---

// Run handles POST /forecast/run. It blocks until the job finishes.
func (h *ForecastHandler) Run(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.runner.Run(r.Context()); err != nil {
		var runErr *forecast.RunError
		switch {
		case errors.As(err, &runErr):
			log.Printf("ERROR: forecast job: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
				"error":     "Error al ejecutar el pronóstico",
				"exit_code": runErr.ExitCode,
				"details":   runErr.Output,
			})
		case errors.Is(err, forecast.ErrNoArtifact):
			log.Printf("ERROR: forecast job finished without %s", h.output)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "No se generó el archivo de pronóstico"})
		default:
			log.Printf("ERROR: forecast job: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error interno al ejecutar el pronóstico"})
		}
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, enum.AccionGenerarPrediccion, actor.Name+" generó una nueva predicción")
	writeJSON(w, http.StatusOK, map[string]string{"message": "Predicción generada correctamente"})
}

// ExportCSV handles GET /forecast/export.csv.
func (h *ForecastHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	art, err := forecast.Read(h.output)
	if err != nil {
		if errors.Is(err, forecast.ErrNoArtifact) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "No hay datos de predicción disponibles."})
			return
		}
		log.Printf("ERROR: read forecast: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error al leer los datos de predicción"})
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, forecast.CSVFilename(h.now().In(h.loc))))
	if err := forecast.WriteCSV(w, art.General); err != nil {
		log.Printf("ERROR: write forecast csv: %v", err)
	}
}

// List handles GET /predictions?id_producto=&dias=. The range starts today
// and covers dias days (default 30).
func (h *ForecastHandler) List(w http.ResponseWriter, r *http.Request) {
	params := database.ListPrediccionesParams{}
	if s := r.URL.Query().Get("id_producto"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id_producto inválido."})
			return
		}
		params.IDProducto = pgtype.UUID{Bytes: id, Valid: true}
	}

	dias := 30
	if s := r.URL.Query().Get("dias"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "dias inválido."})
			return
		}
		dias = v
	}

	now := h.now().In(h.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	params.Desde = pgtype.Date{Time: today, Valid: true}
	params.Hasta = pgtype.Date{Time: today.AddDate(0, 0, dias), Valid: true}

	rows, err := h.store.ListPredicciones(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list predictions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error obteniendo predicciones"})
		return
	}

	resp := predictionListResponse{Predicciones: toPredictionResponses(rows)}
	productos := map[uuid.UUID]bool{}
	for _, p := range rows {
		resp.Resumen.DemandaTotal += int64(p.DemandaPrevista)
		productos[p.IDProducto] = true
	}
	resp.Resumen.TotalPredicciones = len(rows)
	resp.Resumen.ProductosUnicos = len(productos)
	if len(rows) > 0 {
		resp.Resumen.PromedioDiario = float64(resp.Resumen.DemandaTotal) / float64(len(rows))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Suggestions handles GET /predictions/suggestions?tipo=: open
// suggestions, optionally of one type.
func (h *ForecastHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	var tipo pgtype.Text
	if s := r.URL.Query().Get("tipo"); s != "" {
		if _, ok := tipoSugerenciaLabels[s]; !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "tipo inválido."})
			return
		}
		tipo = pgtype.Text{String: s, Valid: true}
	}

	rows, err := h.store.ListSugerencias(r.Context(), tipo)
	if err != nil {
		log.Printf("ERROR: list suggestions: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error obteniendo sugerencias"})
		return
	}

	writeJSON(w, http.StatusOK, suggestionListResponse{
		Sugerencias:      toPredictionResponses(rows),
		TiposDisponibles: tipoSugerenciaLabels,
	})
}

// Accept handles POST /predictions/{id}/accept.
func (h *ForecastHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.suggestionAction(w, r, h.store.AceptarPrediccion, enum.AccionAceptarSugerencia, "aceptada")
}

// Reject handles POST /predictions/{id}/reject. A rejected suggestion is
// removed from the list.
func (h *ForecastHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.suggestionAction(w, r, h.store.RechazarPrediccion, enum.AccionRechazarSugerencia, "rechazada")
}

// --- Helpers ---

type predictionAction func(ctx context.Context, arg database.AccionPrediccionParams) (int64, error)

func (h *ForecastHandler) suggestionAction(w http.ResponseWriter, r *http.Request, fn predictionAction, accion, verb string) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	n, err := fn(r.Context(), database.AccionPrediccionParams{
		ID:              id,
		IDUsuarioAccion: pgtype.UUID{Bytes: actor.ID, Valid: true},
	})
	if err != nil {
		log.Printf("ERROR: %s prediction: %v", verb, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error procesando sugerencia"})
		return
	}
	if n == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Sugerencia no encontrada"})
		return
	}

	recordAudit(r.Context(), h.store, actor.ID, accion, fmt.Sprintf("%s marcó la sugerencia %s como %s", actor.Name, id, verb))
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sugerencia " + verb + " correctamente"})
}

func toPredictionResponses(rows []database.PrediccionVista) []predictionResponse {
	out := make([]predictionResponse, len(rows))
	for i, p := range rows {
		out[i] = predictionResponse{
			ID:              p.ID,
			IDProducto:      p.IDProducto,
			Producto:        p.ProductoNombre,
			DemandaPrevista: p.DemandaPrevista,
			FechaGenerada:   p.FechaGenerada,
			Aceptado:        p.Aceptado,
		}
		if p.FechaPredicha.Valid {
			out[i].FechaPredicha = p.FechaPredicha.Time.Format(dateLayout)
		}
		if p.TipoSugerencia.Valid {
			s := p.TipoSugerencia.String
			out[i].TipoSugerencia = &s
		}
		if p.SugerenciaDescripcion.Valid {
			s := p.SugerenciaDescripcion.String
			out[i].SugerenciaDescripcion = &s
		}
	}
	return out
}
