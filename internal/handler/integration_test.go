//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/typica-pos/api/internal/config"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/notify"
	"github.com/typica-pos/api/internal/router"
	"github.com/typica-pos/api/internal/throttle"
	"github.com/typica-pos/api/internal/ws"
	"golang.org/x/crypto/bcrypt"
)

// TestIntegrationFlow exercises the order lifecycle against a real PostgreSQL
// database with every handler wired through the router.
func TestIntegrationFlow(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start PostgreSQL container
	_, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	// Run migrations
	runMigrations(t, connStr)

	// Create pgxpool connection
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	// Initialize dependencies
	cfg := &config.Config{
		Port:        "8081",
		DatabaseURL: connStr,
		JWTSecret:   "integration-test-secret",
		Timezone:    "UTC",
		CORSOrigins: []string{"http://localhost:5173"},
		Lockout:     config.LockoutConfig{Threshold: 5, Duration: 15 * time.Minute, DailyLimit: 3},
		Throttle:    config.ThrottleConfig{MaxAttempts: 5, Window: time.Minute},
		Forecast: config.ForecastConfig{
			Command: []string{"true"},
			Output:  filepath.Join(t.TempDir(), "forecast.json"),
			Timeout: 10 * time.Second,
		},
	}
	queries := database.New(pool)
	hub := ws.NewHub()
	go hub.Run(ctx)

	limiter := throttle.New(cfg.Throttle.MaxAttempts, cfg.Throttle.Window)
	r := router.New(cfg, queries, pool, hub, notify.NewHubPublisher(hub), limiter)

	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Bootstrap the administrator (manual DB insert) ---
	createAdminUser(t, ctx, pool)
	adminToken := login(t, server, "admin@test.com", "Admin123!")

	// --- 2. Open every day and let waiters cancel modified orders ---
	openAllDay(t, server, adminToken)
	httpDoJSON(t, server, "PUT", "/config/defaults", map[string]interface{}{
		"estados_cancelables": []string{"Pendiente", "Modificado"},
	}, adminToken, http.StatusOK)

	// --- 3. Staff through the API ---
	httpPostJSON(t, server, "/users", map[string]interface{}{
		"nombre": "Ana Mesera", "email": "mesero@test.com", "contrasena": "Mesero1!", "id_rol": enum.RolMesero,
	}, adminToken)
	httpPostJSON(t, server, "/users", map[string]interface{}{
		"nombre": "Carlos Cajero", "email": "cajero@test.com", "contrasena": "Cajero1!", "id_rol": enum.RolCajero,
	}, adminToken)

	// --- 4. Menu ---
	category := httpPostJSON(t, server, "/categories", map[string]interface{}{"nombre": "Platos"}, adminToken)
	product := httpPostJSON(t, server, "/products", map[string]interface{}{
		"nombre":              "Silpancho",
		"id_categoria":        category["id"],
		"precio":              "10.00",
		"cantidad_disponible": 10,
	}, adminToken)
	productID := product["id"].(string)

	waiterToken := login(t, server, "mesero@test.com", "Mesero1!")
	cashierToken := login(t, server, "cajero@test.com", "Cajero1!")

	// --- 5. Create 2×A: stock 10 → 8, Pendiente ---
	order := httpPostJSON(t, server, "/orders", map[string]interface{}{
		"items": []map[string]interface{}{{"id_producto": productID, "cantidad": 2}},
	}, waiterToken)
	orderID := order["id"].(string)
	if order["estado"] != "Pendiente" || order["total"] != "20.00" {
		t.Fatalf("created order: got estado=%v total=%v", order["estado"], order["total"])
	}
	assertStock(t, server, productID, adminToken, 8)

	// --- 6. Edit to 1×A: stock 9, Modificado ---
	_, edited := httpDoJSON(t, server, "PUT", "/orders/"+orderID, map[string]interface{}{
		"items": []map[string]interface{}{{"id_producto": productID, "cantidad": 1}},
	}, waiterToken, http.StatusOK)
	if edited["estado"] != "Modificado" {
		t.Fatalf("edited order: got estado=%v", edited["estado"])
	}
	assertStock(t, server, productID, adminToken, 9)

	// --- 7. Cancel, then redo ---
	canceled := httpPostJSON(t, server, "/orders/"+orderID+"/cancel", nil, waiterToken)
	if canceled["estado"] != "Cancelado" {
		t.Fatalf("canceled order: got estado=%v", canceled["estado"])
	}
	assertStock(t, server, productID, adminToken, 9)

	redone := httpPostJSON(t, server, "/orders/"+orderID+"/redo", nil, waiterToken)
	if redone["estado"] != "Pendiente" {
		t.Fatalf("redone order: got estado=%v", redone["estado"])
	}

	// --- 8. Pay with Tarjeta; paying twice fails ---
	paid := httpPostJSON(t, server, "/orders/"+orderID+"/payment", map[string]interface{}{"metodo_pago": "Tarjeta"}, cashierToken)
	if paid["estado"] != "Pagado" {
		t.Fatalf("paid order: got estado=%v", paid["estado"])
	}
	pago := paid["pago"].(map[string]interface{})
	if pago["monto"] != paid["total"] {
		t.Errorf("payment amount: got %v, want %v", pago["monto"], paid["total"])
	}
	httpDoJSON(t, server, "POST", "/orders/"+orderID+"/payment", map[string]interface{}{"metodo_pago": "Tarjeta"}, cashierToken, http.StatusConflict)

	var pagos int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM pago WHERE id_pedido = $1 AND NOT eliminado`, orderID).Scan(&pagos); err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if pagos != 1 {
		t.Errorf("payments: got %d, want 1", pagos)
	}

	// --- 9. Role gates ---
	httpDoJSON(t, server, "GET", "/users", nil, waiterToken, http.StatusForbidden)
	httpDoJSON(t, server, "GET", "/cashier/orders", nil, waiterToken, http.StatusForbidden)
	httpDoJSON(t, server, "GET", "/kitchen/orders", nil, cashierToken, http.StatusForbidden)

	// --- 10. Audit trail ---
	var audits int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM auditoria WHERE id_pedido = $1`, orderID).Scan(&audits); err != nil {
		t.Fatalf("count audits: %v", err)
	}
	if audits < 5 {
		t.Errorf("audits for order: got %d, want at least 5", audits)
	}
}

// TestIntegrationLockout checks the lock after five failed logins.
func TestIntegrationLockout(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()
	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		JWTSecret: "integration-test-secret",
		Timezone:  "UTC",
		Lockout:   config.LockoutConfig{Threshold: 5, Duration: 15 * time.Minute, DailyLimit: 3},
		Throttle:  config.ThrottleConfig{MaxAttempts: 100, Window: time.Minute},
	}
	hub := ws.NewHub()
	go hub.Run(ctx)
	r := router.New(cfg, database.New(pool), pool, hub, notify.Nop{}, throttle.New(100, time.Minute))
	server := httptest.NewServer(r)
	defer server.Close()

	createAdminUser(t, ctx, pool)

	for i := 0; i < 5; i++ {
		httpDoJSON(t, server, "POST", "/auth/login", map[string]interface{}{
			"email": "admin@test.com", "password": "wrong",
		}, "", http.StatusUnauthorized)
	}
	httpDoJSON(t, server, "POST", "/auth/login", map[string]interface{}{
		"email": "admin@test.com", "password": "Admin123!",
	}, "", http.StatusLocked)

	var bloqueado bool
	var intentos int
	err = pool.QueryRow(ctx, `SELECT bloqueado, bloqueos_hoy FROM usuario WHERE email = 'admin@test.com'`).Scan(&bloqueado, &intentos)
	if err != nil {
		t.Fatalf("read lockout state: %v", err)
	}
	if !bloqueado || intentos != 1 {
		t.Errorf("lockout state: got bloqueado=%v bloqueos_hoy=%d", bloqueado, intentos)
	}
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("comandas_test"),
		tcpostgres.WithUsername("comandas"),
		tcpostgres.WithPassword("comandas"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	// Connect with stdlib for migrate
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Go test sets cwd to the package directory (internal/handler/).
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func createAdminUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("Admin123!"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO usuario (nombre, email, contrasena_hash, estado, id_rol)
		 VALUES ('Admin', 'admin@test.com', $1, 'Activo', $2) RETURNING id`,
		string(hashed), enum.RolAdministrador,
	).Scan(&id)
	if err != nil {
		t.Fatalf("create admin user: %v", err)
	}
	return id
}

func login(t *testing.T, server *httptest.Server, email, password string) string {
	t.Helper()
	body := map[string]interface{}{
		"email":    email,
		"password": password,
	}
	resp := httpPostJSON(t, server, "/auth/login", body, "")
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("login failed: no access_token in response: %+v", resp)
	}
	return token
}

func openAllDay(t *testing.T, server *httptest.Server, token string) {
	t.Helper()
	horarios := make([]map[string]string, 0, len(enum.DiasSemana))
	for _, dia := range enum.DiasSemana {
		horarios = append(horarios, map[string]string{"dia": dia, "hora_inicio": "00:00:00", "hora_fin": "23:59:59"})
	}
	httpDoJSON(t, server, "PUT", "/config/hours", map[string]interface{}{"horarios": horarios}, token, http.StatusOK)
}

func assertStock(t *testing.T, server *httptest.Server, productID, token string, want float64) {
	t.Helper()
	_, p := httpDoJSON(t, server, "GET", "/products/"+productID, nil, token, http.StatusOK)
	if p["cantidad_disponible"] != want {
		t.Fatalf("cantidad_disponible: got %v, want %v", p["cantidad_disponible"], want)
	}
}

// --- HTTP helpers ---

// httpDoJSON sends body as JSON and fails unless the status is wantStatus.
func httpDoJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string, wantStatus int) (int, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&result)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s: status %d, want %d, body: %v", method, path, resp.StatusCode, wantStatus, result)
	}
	return resp.StatusCode, result
}

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req, err := http.NewRequest("POST", server.URL+path, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errResp map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errResp)
		t.Fatalf("POST %s: status %d, body: %v", path, resp.StatusCode, errResp)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return result
}
