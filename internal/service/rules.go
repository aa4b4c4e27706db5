package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
)

// Keys of the configuraciones table holding global rule defaults.
const (
	ConfigTiempoCancelacion = "tiempo_cancelacion_minutos"
	ConfigTiempoEdicion     = "tiempo_edicion_minutos"
	ConfigEstadosCancelable = "estados_cancelables"
	ConfigEstadosEditables  = "estados_editables"
)

// RulesStore defines the DB methods needed to load order rules.
// Satisfied by *database.Queries; narrow interface for testability.
type RulesStore interface {
	ListConfigEstadoPedidos(ctx context.Context) ([]database.ConfigEstadoPedido, error)
	ListConfiguraciones(ctx context.Context) ([]database.Configuracion, error)
	ListHorarios(ctx context.Context) ([]database.ConfigHorariosAtencion, error)
}

// StateRule is the waiter policy for orders in one state.
type StateRule struct {
	CanCancel     bool `json:"puede_cancelar"`
	CanEdit       bool `json:"puede_editar"`
	CancelMinutes int  `json:"cancelar"`
	EditMinutes   int  `json:"editar"`
}

// Schedule is an attention window as offsets from local midnight.
type Schedule struct {
	Start time.Duration
	End   time.Duration
}

// OrderRules holds per-state rules, global defaults and attention hours.
type OrderRules struct {
	States               map[string]StateRule
	Hours                map[string]Schedule // keyed by Spanish weekday name
	DefaultCancelMinutes int
	DefaultEditMinutes   int
	DefaultCancelables   []string
	DefaultEditables     []string
}

// DefaultOrderRules returns the rules used when nothing is configured.
func DefaultOrderRules() *OrderRules {
	return &OrderRules{
		States:               map[string]StateRule{},
		Hours:                map[string]Schedule{},
		DefaultCancelMinutes: 5,
		DefaultEditMinutes:   10,
		DefaultCancelables:   []string{"Pendiente", "Modificado"},
		DefaultEditables:     []string{"Pendiente", "Modificado"},
	}
}

// LoadOrderRules reads the rule tables into an OrderRules.
func LoadOrderRules(ctx context.Context, store RulesStore) (*OrderRules, error) {
	rules := DefaultOrderRules()

	settings, err := store.ListConfiguraciones(ctx)
	if err != nil {
		return nil, fmt.Errorf("list configuraciones: %w", err)
	}
	for _, c := range settings {
		switch c.Clave {
		case ConfigTiempoCancelacion:
			rules.DefaultCancelMinutes = parseMinutes(c.Clave, c.Valor, rules.DefaultCancelMinutes)
		case ConfigTiempoEdicion:
			rules.DefaultEditMinutes = parseMinutes(c.Clave, c.Valor, rules.DefaultEditMinutes)
		case ConfigEstadosCancelable:
			rules.DefaultCancelables = parseStateList(c.Clave, c.Valor, rules.DefaultCancelables)
		case ConfigEstadosEditables:
			rules.DefaultEditables = parseStateList(c.Clave, c.Valor, rules.DefaultEditables)
		}
	}

	states, err := store.ListConfigEstadoPedidos(ctx)
	if err != nil {
		return nil, fmt.Errorf("list config estado pedidos: %w", err)
	}
	for _, st := range states {
		rules.States[st.Estado] = StateRule{
			CanCancel:     st.PuedeCancelar,
			CanEdit:       st.PuedeEditar,
			CancelMinutes: int(st.TiempoCancelacionMinutos),
			EditMinutes:   int(st.TiempoEdicionMinutos),
		}
	}

	hours, err := store.ListHorarios(ctx)
	if err != nil {
		return nil, fmt.Errorf("list horarios: %w", err)
	}
	for _, h := range hours {
		rules.Hours[h.Dia] = Schedule{Start: timeOfDay(h.HoraInicio), End: timeOfDay(h.HoraFin)}
	}
	return rules, nil
}

// Rule returns the rule for a state name, falling back to the global defaults.
func (r *OrderRules) Rule(estado string) StateRule {
	if rule, ok := r.States[estado]; ok {
		return rule
	}
	return StateRule{
		CanCancel:     contains(r.DefaultCancelables, estado),
		CanEdit:       contains(r.DefaultEditables, estado),
		CancelMinutes: r.DefaultCancelMinutes,
		EditMinutes:   r.DefaultEditMinutes,
	}
}

// Cancelables lists the state names a waiter may cancel from.
func (r *OrderRules) Cancelables() []string {
	var out []string
	for _, id := range enum.Estados {
		name := enum.EstadoNombre(id)
		if r.Rule(name).CanCancel {
			out = append(out, name)
		}
	}
	return out
}

// Editables lists the state names a waiter may edit from.
func (r *OrderRules) Editables() []string {
	var out []string
	for _, id := range enum.Estados {
		name := enum.EstadoNombre(id)
		if r.Rule(name).CanEdit {
			out = append(out, name)
		}
	}
	return out
}

// IsOpen reports whether t falls inside the attention hours of its weekday.
// A weekday without a schedule is closed. t must already be in the
// restaurant's zone.
func (r *OrderRules) IsOpen(t time.Time) bool {
	sched, ok := r.Hours[enum.DiasSemana[t.Weekday()]]
	if !ok {
		return false
	}
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	since := t.Sub(midnight).Truncate(time.Second)
	return since >= sched.Start && since <= sched.End
}

// --- Helpers ---

func timeOfDay(t pgtype.Time) time.Duration {
	if !t.Valid {
		return 0
	}
	return time.Duration(t.Microseconds) * time.Microsecond
}

// FormatTimeOfDay renders an offset from midnight as HH:MM:SS.
func FormatTimeOfDay(d time.Duration) string {
	s := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

// ParseTimeOfDay parses HH:MM:SS (or HH:MM) into a pgtype.Time.
func ParseTimeOfDay(s string) (pgtype.Time, error) {
	layouts := []string{"15:04:05", "15:04"}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
			return pgtype.Time{Microseconds: d.Microseconds(), Valid: true}, nil
		}
	}
	return pgtype.Time{}, fmt.Errorf("invalid time of day %q", s)
}

func parseMinutes(key, v string, fallback int) int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		log.Printf("WARNING: invalid %s=%q, using %d", key, v, fallback)
		return fallback
	}
	return n
}

func parseStateList(key, v string, fallback []string) []string {
	var out []string
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		log.Printf("WARNING: invalid %s=%q: %v", key, v, err)
		return fallback
	}
	return out
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
