package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/handler"
	"github.com/typica-pos/api/internal/middleware"
	"github.com/typica-pos/api/internal/service"
)

// --- Mock store ---

type mockConfigStore struct {
	states   map[string]database.ConfigEstadoPedido
	settings map[string]string
	horarios map[string]database.ConfigHorariosAtencion
	audits   []database.CreateAuditoriaParams
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{
		states:   make(map[string]database.ConfigEstadoPedido),
		settings: make(map[string]string),
		horarios: make(map[string]database.ConfigHorariosAtencion),
	}
}

func (m *mockConfigStore) ListEstadosPedido(_ context.Context) ([]database.Estadopedido, error) {
	result := make([]database.Estadopedido, len(enum.Estados))
	for i, id := range enum.Estados {
		result[i] = database.Estadopedido{ID: id, NombreEstado: enum.EstadoNombre(id), ColorCodigo: "#000000"}
	}
	return result, nil
}

func (m *mockConfigStore) ListConfigEstadoPedidos(_ context.Context) ([]database.ConfigEstadoPedido, error) {
	result := []database.ConfigEstadoPedido{}
	for _, id := range enum.Estados {
		if row, ok := m.states[enum.EstadoNombre(id)]; ok {
			result = append(result, row)
		}
	}
	return result, nil
}

func (m *mockConfigStore) UpsertConfigEstadoPedido(_ context.Context, arg database.UpsertConfigEstadoPedidoParams) error {
	m.states[arg.Estado] = database.ConfigEstadoPedido{
		Estado:                   arg.Estado,
		TiempoCancelacionMinutos: arg.TiempoCancelacionMinutos,
		TiempoEdicionMinutos:     arg.TiempoEdicionMinutos,
		PuedeCancelar:            arg.PuedeCancelar,
		PuedeEditar:              arg.PuedeEditar,
	}
	return nil
}

func (m *mockConfigStore) ListConfiguraciones(_ context.Context) ([]database.Configuracion, error) {
	result := []database.Configuracion{}
	for k, v := range m.settings {
		result = append(result, database.Configuracion{Clave: k, Valor: v})
	}
	return result, nil
}

func (m *mockConfigStore) UpsertConfiguracion(_ context.Context, arg database.UpsertConfiguracionParams) error {
	m.settings[arg.Clave] = arg.Valor
	return nil
}

func (m *mockConfigStore) ListHorarios(_ context.Context) ([]database.ConfigHorariosAtencion, error) {
	result := []database.ConfigHorariosAtencion{}
	for _, h := range m.horarios {
		result = append(result, h)
	}
	return result, nil
}

func (m *mockConfigStore) UpsertHorario(_ context.Context, arg database.UpsertHorarioParams) error {
	m.horarios[arg.Dia] = database.ConfigHorariosAtencion{Dia: arg.Dia, HoraInicio: arg.HoraInicio, HoraFin: arg.HoraFin}
	return nil
}

func (m *mockConfigStore) CreateAuditoria(_ context.Context, arg database.CreateAuditoriaParams) (database.Auditoria, error) {
	m.audits = append(m.audits, arg)
	return database.Auditoria{}, nil
}

// --- Helpers ---

func setupConfigRouter(store *mockConfigStore) *chi.Mux {
	h := handler.NewConfigHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testSecret))
	h.RegisterStateRoutes(r)
	r.Route("/config", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestListOrderStates(t *testing.T) {
	router := setupConfigRouter(newMockConfigStore())

	rr := doAuthRequest(t, router, "GET", "/order-states", nil, claimsFor(enum.RoleMesero))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	list := decodeList(t, rr)
	if len(list) != len(enum.Estados) {
		t.Fatalf("states: got %d, want %d", len(list), len(enum.Estados))
	}
	if list[0]["nombre_estado"] != enum.EstadoNombre(enum.Estados[0]) || list[0]["color_codigo"] != "#000000" {
		t.Errorf("first state: got %v", list[0])
	}
}

func TestGetStateRules_DefaultsWhenEmpty(t *testing.T) {
	router := setupConfigRouter(newMockConfigStore())

	rr := doAuthRequest(t, router, "GET", "/config/states", nil, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["tiempo_cancelacion_minutos"] != float64(5) || resp["tiempo_edicion_minutos"] != float64(10) {
		t.Errorf("windows: got %v", resp)
	}
	if estados := resp["estados"].([]interface{}); len(estados) != 0 {
		t.Errorf("estados: got %v, want empty", estados)
	}
}

func TestUpdateStateRules_AppliesWindowsToAllStates(t *testing.T) {
	store := newMockConfigStore()
	router := setupConfigRouter(store)

	rr := doAuthRequest(t, router, "PUT", "/config/states", map[string]interface{}{
		"tiempo_cancelacion_minutos": 3,
		"tiempo_edicion_minutos":     7,
		"estados": []map[string]interface{}{
			{"estado": "Pendiente", "puede_cancelar": true, "puede_editar": true},
			{"estado": "En preparación", "puede_cancelar": false, "puede_editar": true},
		},
	}, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	if len(store.states) != 2 {
		t.Fatalf("rows: got %d, want 2", len(store.states))
	}
	for name, row := range store.states {
		if row.TiempoCancelacionMinutos != 3 || row.TiempoEdicionMinutos != 7 {
			t.Errorf("%s windows: got %d/%d, want 3/7", name, row.TiempoCancelacionMinutos, row.TiempoEdicionMinutos)
		}
	}
	if store.states["En preparación"].PuedeCancelar {
		t.Error("En preparación should not be cancelable")
	}
	if len(store.audits) != 1 || store.audits[0].Accion != enum.AccionActualizarConfig {
		t.Errorf("audits: got %v", store.audits)
	}

	rr = doAuthRequest(t, router, "GET", "/config/states", nil, claimsFor(enum.RoleAdministrador))
	resp := decodeResponse(t, rr)
	if resp["tiempo_cancelacion_minutos"] != float64(3) {
		t.Errorf("read back: got %v", resp)
	}
}

func TestUpdateStateRules_Validation(t *testing.T) {
	router := setupConfigRouter(newMockConfigStore())

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing estados", map[string]interface{}{"tiempo_cancelacion_minutos": 3, "tiempo_edicion_minutos": 7}},
		{"missing minutes", map[string]interface{}{"estados": []map[string]interface{}{{"estado": "Pendiente"}}}},
		{"negative minutes", map[string]interface{}{
			"tiempo_cancelacion_minutos": -1,
			"tiempo_edicion_minutos":     7,
			"estados":                    []map[string]interface{}{{"estado": "Pendiente"}},
		}},
		{"unknown state", map[string]interface{}{
			"tiempo_cancelacion_minutos": 3,
			"tiempo_edicion_minutos":     7,
			"estados":                    []map[string]interface{}{{"estado": "Volando"}},
		}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rr := doAuthRequest(t, router, "PUT", "/config/states", tc.body, claimsFor(enum.RoleAdministrador))
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
			}
		})
	}
}

func TestDefaults_GetAndUpdate(t *testing.T) {
	store := newMockConfigStore()
	router := setupConfigRouter(store)

	rr := doAuthRequest(t, router, "GET", "/config/defaults", nil, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if todos := resp["todos_los_estados"].([]interface{}); len(todos) != len(enum.Estados) {
		t.Errorf("todos_los_estados: got %v", todos)
	}

	rr = doAuthRequest(t, router, "PUT", "/config/defaults", map[string]interface{}{
		"tiempo_edicion_minutos": 15,
		"estados_cancelables":    []string{"Pendiente", "Modificado"},
	}, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusOK {
		t.Fatalf("update: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	if store.settings[service.ConfigTiempoEdicion] != "15" {
		t.Errorf("tiempo_edicion: got %q", store.settings[service.ConfigTiempoEdicion])
	}
	var cancelables []string
	if err := json.Unmarshal([]byte(store.settings[service.ConfigEstadosCancelable]), &cancelables); err != nil {
		t.Fatalf("estados_cancelables not JSON: %v", err)
	}
	if len(cancelables) != 2 || cancelables[1] != "Modificado" {
		t.Errorf("estados_cancelables: got %v", cancelables)
	}
	if _, ok := store.settings[service.ConfigTiempoCancelacion]; ok {
		t.Error("absent field should not be written")
	}
	if len(store.audits) != 2 {
		t.Errorf("audits: got %d, want 2", len(store.audits))
	}

	rr = doAuthRequest(t, router, "GET", "/config/defaults", nil, claimsFor(enum.RoleAdministrador))
	resp = decodeResponse(t, rr)
	if resp["tiempo_edicion_minutos"] != float64(15) || resp["tiempo_cancelacion_minutos"] != float64(5) {
		t.Errorf("read back: got %v", resp)
	}
}

func TestUpdateDefaults_Invalid(t *testing.T) {
	router := setupConfigRouter(newMockConfigStore())

	for _, body := range []map[string]interface{}{
		{},
		{"tiempo_cancelacion_minutos": -5},
		{"estados_editables": []string{"Pendiente", "Nope"}},
	} {
		rr := doAuthRequest(t, router, "PUT", "/config/defaults", body, claimsFor(enum.RoleAdministrador))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%v: got %d, want %d", body, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestHours_UpsertByDay(t *testing.T) {
	store := newMockConfigStore()
	router := setupConfigRouter(store)

	rr := doAuthRequest(t, router, "PUT", "/config/hours", map[string]interface{}{
		"horarios": []map[string]string{
			{"dia": "Martes", "hora_inicio": "08:00:00", "hora_fin": "22:00:00"},
			{"dia": "Lunes", "hora_inicio": "09:30", "hora_fin": "21:00:00"},
		},
	}, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	// Second write for Lunes replaces the first.
	rr = doAuthRequest(t, router, "PUT", "/config/hours", map[string]interface{}{
		"horarios": []map[string]string{
			{"dia": "Lunes", "hora_inicio": "10:00:00", "hora_fin": "20:00:00"},
		},
	}, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusOK {
		t.Fatalf("second update: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	rr = doAuthRequest(t, router, "GET", "/config/hours", nil, claimsFor(enum.RoleAdministrador))
	list := decodeList(t, rr)
	if len(list) != 2 {
		t.Fatalf("horarios: got %d, want 2", len(list))
	}
	if list[0]["dia"] != "Lunes" || list[0]["hora_inicio"] != "10:00:00" || list[0]["hora_fin"] != "20:00:00" {
		t.Errorf("Lunes: got %v", list[0])
	}
	if list[1]["dia"] != "Martes" {
		t.Errorf("order: got %v", list)
	}
	if len(store.audits) != 2 || store.audits[0].Accion != enum.AccionActualizarHorario {
		t.Errorf("audits: got %v", store.audits)
	}
}

func TestHours_Validation(t *testing.T) {
	router := setupConfigRouter(newMockConfigStore())

	for _, h := range []map[string]string{
		{"dia": "Funday", "hora_inicio": "08:00:00", "hora_fin": "22:00:00"},
		{"dia": "Lunes", "hora_inicio": "8am", "hora_fin": "22:00:00"},
		{"dia": "Lunes", "hora_inicio": "22:00:00", "hora_fin": "08:00:00"},
	} {
		rr := doAuthRequest(t, router, "PUT", "/config/hours", map[string]interface{}{
			"horarios": []map[string]string{h},
		}, claimsFor(enum.RoleAdministrador))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%v: got %d, want %d", h, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestGetRules_ReflectsStateOverrides(t *testing.T) {
	store := newMockConfigStore()
	store.states["Listo para servir"] = database.ConfigEstadoPedido{Estado: "Listo para servir", PuedeCancelar: true, TiempoCancelacionMinutos: 2}
	router := setupConfigRouter(store)

	rr := doAuthRequest(t, router, "GET", "/config/rules", nil, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	cancelables := resp["estados_cancelables"].([]interface{})
	found := false
	for _, c := range cancelables {
		if c == "Listo para servir" {
			found = true
		}
	}
	if !found {
		t.Errorf("estados_cancelables: got %v, want Listo para servir included", cancelables)
	}
}
