package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/handler"
	"github.com/typica-pos/api/internal/middleware"
)

// --- Mock store ---

type mockComboStore struct {
	products map[uuid.UUID]database.Producto
	combos   map[uuid.UUID]database.Combo
	items    []database.Detallecombo
}

func newMockComboStore() *mockComboStore {
	return &mockComboStore{
		products: make(map[uuid.UUID]database.Producto),
		combos:   make(map[uuid.UUID]database.Combo),
	}
}

func (m *mockComboStore) addProduct(nombre string) database.Producto {
	p := database.Producto{ID: uuid.New(), Nombre: nombre, Precio: makeNumeric("5.00"), Disponibilidad: true}
	m.products[p.ID] = p
	return p
}

func (m *mockComboStore) addCombo(nombre, precio string) database.Combo {
	c := database.Combo{
		ID:             uuid.New(),
		Nombre:         nombre,
		Precio:         makeNumeric(precio),
		Disponibilidad: true,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.combos[c.ID] = c
	return c
}

func (m *mockComboStore) GetProducto(_ context.Context, id uuid.UUID) (database.Producto, error) {
	p, ok := m.products[id]
	if !ok || p.Eliminado {
		return database.Producto{}, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockComboStore) ListCombos(_ context.Context) ([]database.Combo, error) {
	result := []database.Combo{}
	for _, c := range m.combos {
		if !c.Eliminado {
			result = append(result, c)
		}
	}
	return result, nil
}

func (m *mockComboStore) GetCombo(_ context.Context, id uuid.UUID) (database.Combo, error) {
	c, ok := m.combos[id]
	if !ok || c.Eliminado {
		return database.Combo{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockComboStore) CreateCombo(_ context.Context, arg database.CreateComboParams) (database.Combo, error) {
	c := database.Combo{
		ID:             uuid.New(),
		Nombre:         arg.Nombre,
		Descripcion:    arg.Descripcion,
		Precio:         arg.Precio,
		Disponibilidad: arg.Disponibilidad,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	m.combos[c.ID] = c
	return c, nil
}

func (m *mockComboStore) UpdateCombo(_ context.Context, arg database.UpdateComboParams) (database.Combo, error) {
	c, ok := m.combos[arg.ID]
	if !ok || c.Eliminado {
		return database.Combo{}, pgx.ErrNoRows
	}
	c.Nombre = arg.Nombre
	c.Descripcion = arg.Descripcion
	c.Precio = arg.Precio
	c.Disponibilidad = arg.Disponibilidad
	m.combos[c.ID] = c
	return c, nil
}

func (m *mockComboStore) SoftDeleteCombo(_ context.Context, id uuid.UUID) (int64, error) {
	c, ok := m.combos[id]
	if !ok || c.Eliminado {
		return 0, nil
	}
	c.Eliminado = true
	m.combos[id] = c
	return 1, nil
}

func (m *mockComboStore) ListDetallesCombo(_ context.Context, comboID uuid.UUID) ([]database.ListDetallesComboRow, error) {
	result := []database.ListDetallesComboRow{}
	for _, it := range m.items {
		if it.IDCombo == comboID {
			result = append(result, database.ListDetallesComboRow{
				Detallecombo:   it,
				ProductoNombre: m.products[it.IDProducto].Nombre,
			})
		}
	}
	return result, nil
}

func (m *mockComboStore) AddDetalleCombo(_ context.Context, arg database.AddDetalleComboParams) (database.Detallecombo, error) {
	// Simulates UNIQUE (id_combo, id_producto)
	for _, it := range m.items {
		if it.IDCombo == arg.IDCombo && it.IDProducto == arg.IDProducto {
			return database.Detallecombo{}, &pgconn.PgError{Code: "23505"}
		}
	}
	it := database.Detallecombo{
		ID:         uuid.New(),
		IDCombo:    arg.IDCombo,
		IDProducto: arg.IDProducto,
		Cantidad:   arg.Cantidad,
		CreatedAt:  time.Now(),
	}
	m.items = append(m.items, it)
	return it, nil
}

func (m *mockComboStore) DeleteDetalleCombo(_ context.Context, arg database.DeleteDetalleComboParams) (int64, error) {
	for i, it := range m.items {
		if it.IDCombo == arg.IDCombo && it.IDProducto == arg.IDProducto {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

// --- Helpers ---

func setupComboRouter(store *mockComboStore) *chi.Mux {
	h := handler.NewComboHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testSecret))
	r.Route("/combos", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestCreateCombo_Success(t *testing.T) {
	store := newMockComboStore()
	router := setupComboRouter(store)

	rr := doAuthRequest(t, router, "POST", "/combos", map[string]interface{}{
		"nombre": "Desayuno",
		"precio": "15",
	}, claimsFor(enum.RoleAdministrador))

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["precio"] != "15.00" || resp["disponibilidad"] != true {
		t.Errorf("response: got %v", resp)
	}
	if _, ok := resp["items"]; ok {
		t.Error("items should be omitted on create")
	}
}

func TestCreateCombo_Validation(t *testing.T) {
	router := setupComboRouter(newMockComboStore())

	for _, body := range []map[string]interface{}{
		{"precio": "15"},
		{"nombre": "Desayuno"},
		{"nombre": "Desayuno", "precio": "-2"},
	} {
		rr := doAuthRequest(t, router, "POST", "/combos", body, claimsFor(enum.RoleAdministrador))
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%v: got %d, want %d", body, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestComboItems_AddGetRemove(t *testing.T) {
	store := newMockComboStore()
	combo := store.addCombo("Desayuno", "15.00")
	cafe := store.addProduct("Café")
	router := setupComboRouter(store)
	base := "/combos/" + combo.ID.String()

	rr := doAuthRequest(t, router, "POST", base+"/items", map[string]interface{}{
		"id_producto": cafe.ID.String(),
	}, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusCreated {
		t.Fatalf("add: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	if resp := decodeResponse(t, rr); resp["cantidad"] != float64(1) || resp["producto"] != "Café" {
		t.Errorf("add response: got %v", resp)
	}

	rr = doAuthRequest(t, router, "POST", base+"/items", map[string]interface{}{
		"id_producto": cafe.ID.String(),
		"cantidad":    2,
	}, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate add: got %d, want %d", rr.Code, http.StatusConflict)
	}

	rr = doAuthRequest(t, router, "GET", base, nil, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusOK {
		t.Fatalf("get: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	items := decodeResponse(t, rr)["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("items: got %d, want 1", len(items))
	}

	rr = doAuthRequest(t, router, "DELETE", base+"/items/"+cafe.ID.String(), nil, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("remove: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	rr = doAuthRequest(t, router, "DELETE", base+"/items/"+cafe.ID.String(), nil, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusNotFound {
		t.Errorf("second remove: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestComboItems_UnknownProduct(t *testing.T) {
	store := newMockComboStore()
	combo := store.addCombo("Desayuno", "15.00")
	router := setupComboRouter(store)

	rr := doAuthRequest(t, router, "POST", "/combos/"+combo.ID.String()+"/items", map[string]interface{}{
		"id_producto": uuid.New().String(),
	}, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusBadRequest, rr.Body.String())
	}
}

func TestComboItems_UnknownCombo(t *testing.T) {
	store := newMockComboStore()
	cafe := store.addProduct("Café")
	router := setupComboRouter(store)

	rr := doAuthRequest(t, router, "POST", "/combos/"+uuid.New().String()+"/items", map[string]interface{}{
		"id_producto": cafe.ID.String(),
	}, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUpdateAndDeleteCombo(t *testing.T) {
	store := newMockComboStore()
	combo := store.addCombo("Desayuno", "15.00")
	router := setupComboRouter(store)

	rr := doAuthRequest(t, router, "PUT", "/combos/"+combo.ID.String(), map[string]interface{}{
		"nombre":         "Desayuno completo",
		"precio":         "18.50",
		"disponibilidad": false,
	}, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusOK {
		t.Fatalf("update: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if resp := decodeResponse(t, rr); resp["precio"] != "18.50" || resp["disponibilidad"] != false {
		t.Errorf("update response: got %v", resp)
	}

	rr = doAuthRequest(t, router, "DELETE", "/combos/"+combo.ID.String(), nil, claimsFor(enum.RoleAdministrador))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: got %d, want %d", rr.Code, http.StatusNoContent)
	}

	rr = doAuthRequest(t, router, "GET", "/combos", nil, claimsFor(enum.RoleAdministrador))
	if list := decodeList(t, rr); len(list) != 0 {
		t.Errorf("list after delete: got %v", list)
	}
}
