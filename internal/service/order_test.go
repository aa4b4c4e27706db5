package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/notify"
)

// --- Mock implementations ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commitErr   error
	rollbackErr error
	commits     int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error {
	m.commits++
	return m.commitErr
}
func (m *mockTx) Rollback(ctx context.Context) error { return m.rollbackErr }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx  pgx.Tx
	err error
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, m.err
}

// memStore is an in-memory OrderStore that mimics the live views: soft
// deleted rows are invisible to reads and conditional updates.
type memStore struct {
	products map[uuid.UUID]*database.Producto
	pedidos  map[uuid.UUID]*database.Pedido
	lines    []*database.Detallepedido
	pagos    []*database.Pago
	audits   []database.CreateAuditoriaParams
	history  []database.CreateHistorialEstadoParams
	users    map[uuid.UUID]string
	states   []database.ConfigEstadoPedido
	settings []database.Configuracion
	hours    []database.ConfigHorariosAtencion

	numero int64
	orden  int32
}

func newMemStore() *memStore {
	m := &memStore{
		products: map[uuid.UUID]*database.Producto{},
		pedidos:  map[uuid.UUID]*database.Pedido{},
		users:    map[uuid.UUID]string{},
	}
	// Open all day, every day.
	for _, dia := range enum.DiasSemana {
		m.hours = append(m.hours, database.ConfigHorariosAtencion{
			Dia:        dia,
			HoraInicio: pgtype.Time{Microseconds: 0, Valid: true},
			HoraFin:    pgtype.Time{Microseconds: (24*time.Hour - time.Second).Microseconds(), Valid: true},
		})
	}
	return m
}

func (m *memStore) addProduct(name, price string, stock int32) uuid.UUID {
	id := uuid.New()
	m.products[id] = &database.Producto{
		ID:                 id,
		Nombre:             name,
		Precio:             makeNumeric(price),
		Disponibilidad:     true,
		CantidadDisponible: stock,
	}
	return id
}

func (m *memStore) ListConfigEstadoPedidos(ctx context.Context) ([]database.ConfigEstadoPedido, error) {
	return m.states, nil
}
func (m *memStore) ListConfiguraciones(ctx context.Context) ([]database.Configuracion, error) {
	return m.settings, nil
}
func (m *memStore) ListHorarios(ctx context.Context) ([]database.ConfigHorariosAtencion, error) {
	return m.hours, nil
}

func (m *memStore) GetProducto(ctx context.Context, id uuid.UUID) (database.Producto, error) {
	p, ok := m.products[id]
	if !ok || p.Eliminado {
		return database.Producto{}, pgx.ErrNoRows
	}
	return *p, nil
}
func (m *memStore) DecrementStock(ctx context.Context, arg database.DecrementStockParams) (int64, error) {
	p, ok := m.products[arg.ID]
	if !ok || p.Eliminado || p.CantidadDisponible < arg.Cantidad {
		return 0, nil
	}
	p.CantidadDisponible -= arg.Cantidad
	return 1, nil
}
func (m *memStore) RestoreStock(ctx context.Context, arg database.RestoreStockParams) error {
	if p, ok := m.products[arg.ID]; ok {
		p.CantidadDisponible += arg.Cantidad
	}
	return nil
}

func (m *memStore) CreatePedido(ctx context.Context, arg database.CreatePedidoParams) (database.Pedido, error) {
	m.numero++
	p := &database.Pedido{
		ID:                uuid.New(),
		Numero:            m.numero,
		IDUsuarioMesero:   arg.IDUsuarioMesero,
		FechaHoraRegistro: time.Now(),
		EstadoActual:      arg.EstadoActual,
	}
	m.pedidos[p.ID] = p
	return *p, nil
}
func (m *memStore) GetPedidoForUpdate(ctx context.Context, id uuid.UUID) (database.Pedido, error) {
	p, ok := m.pedidos[id]
	if !ok || p.Eliminado {
		return database.Pedido{}, pgx.ErrNoRows
	}
	return *p, nil
}
func (m *memStore) UpdatePedidoEstado(ctx context.Context, arg database.UpdatePedidoEstadoParams) (database.Pedido, error) {
	p := m.pedidos[arg.ID]
	p.EstadoActual = arg.EstadoActual
	return *p, nil
}

func (m *memStore) CreateDetallePedido(ctx context.Context, arg database.CreateDetallePedidoParams) (database.Detallepedido, error) {
	m.orden++
	d := &database.Detallepedido{
		ID:             uuid.New(),
		IDPedido:       arg.IDPedido,
		IDProducto:     arg.IDProducto,
		Cantidad:       arg.Cantidad,
		Comentario:     arg.Comentario,
		PrecioUnitario: arg.PrecioUnitario,
		Orden:          m.orden,
	}
	m.lines = append(m.lines, d)
	return *d, nil
}
func (m *memStore) ListDetallesByPedido(ctx context.Context, pedidoID uuid.UUID) ([]database.DetalleVista, error) {
	var out []database.DetalleVista
	for _, d := range m.lines {
		if d.IDPedido != pedidoID || d.Eliminado {
			continue
		}
		out = append(out, database.DetalleVista{
			ID:             d.ID,
			IDPedido:       d.IDPedido,
			IDProducto:     d.IDProducto,
			Cantidad:       d.Cantidad,
			Comentario:     d.Comentario,
			PrecioUnitario: d.PrecioUnitario,
			Orden:          d.Orden,
			ProductoNombre: m.products[d.IDProducto].Nombre,
		})
	}
	return out, nil
}
func (m *memStore) line(id uuid.UUID) *database.Detallepedido {
	for _, d := range m.lines {
		if d.ID == id {
			return d
		}
	}
	return nil
}
func (m *memStore) UpdateDetalleCantidad(ctx context.Context, arg database.UpdateDetalleCantidadParams) error {
	m.line(arg.ID).Cantidad = arg.Cantidad
	return nil
}
func (m *memStore) UpdateDetalleComentario(ctx context.Context, arg database.UpdateDetalleComentarioParams) error {
	m.line(arg.ID).Comentario = arg.Comentario
	return nil
}
func (m *memStore) SoftDeleteDetalle(ctx context.Context, id uuid.UUID) error {
	m.line(id).Eliminado = true
	return nil
}

func (m *memStore) GetPagoByPedido(ctx context.Context, pedidoID uuid.UUID) (database.Pago, error) {
	for _, p := range m.pagos {
		if p.IDPedido == pedidoID && !p.Eliminado {
			return *p, nil
		}
	}
	return database.Pago{}, pgx.ErrNoRows
}
func (m *memStore) CreatePago(ctx context.Context, arg database.CreatePagoParams) (database.Pago, error) {
	p := &database.Pago{
		ID:         uuid.New(),
		IDPedido:   arg.IDPedido,
		Monto:      arg.Monto,
		MetodoPago: arg.MetodoPago,
		FechaPago:  time.Now(),
	}
	m.pagos = append(m.pagos, p)
	return *p, nil
}
func (m *memStore) SoftDeletePagoByPedido(ctx context.Context, pedidoID uuid.UUID) (int64, error) {
	var n int64
	for _, p := range m.pagos {
		if p.IDPedido == pedidoID && !p.Eliminado {
			p.Eliminado = true
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetUsuarioNombre(ctx context.Context, id uuid.UUID) (string, error) {
	name, ok := m.users[id]
	if !ok {
		return "", pgx.ErrNoRows
	}
	return name, nil
}
func (m *memStore) CreateAuditoria(ctx context.Context, arg database.CreateAuditoriaParams) (database.Auditoria, error) {
	m.audits = append(m.audits, arg)
	return database.Auditoria{ID: uuid.New(), IDUsuario: arg.IDUsuario, IDPedido: arg.IDPedido, Accion: arg.Accion, Descripcion: arg.Descripcion}, nil
}
func (m *memStore) CreateHistorialEstado(ctx context.Context, arg database.CreateHistorialEstadoParams) error {
	m.history = append(m.history, arg)
	return nil
}

func (m *memStore) livePagos(pedidoID uuid.UUID) int {
	n := 0
	for _, p := range m.pagos {
		if p.IDPedido == pedidoID && !p.Eliminado {
			n++
		}
	}
	return n
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	events []notify.Event
}

func (r *recordingPublisher) Publish(ctx context.Context, ev notify.Event) error {
	r.events = append(r.events, ev)
	return nil
}

// --- Test helpers ---

func makeNumeric(val string) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(val)
	return n
}

func numericEquals(n pgtype.Numeric, expected string) bool {
	d := numericToDecimal(n)
	exp, _ := decimal.NewFromString(expected)
	return d.Equal(exp)
}

// newTestService creates an OrderService backed by store.
func newTestService(store OrderStore) (*OrderService, *mockTx, *recordingPublisher) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	events := &recordingPublisher{}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore, events, time.UTC), tx, events
}

var (
	waiter  = Actor{ID: uuid.New(), Name: "Ana", Role: enum.RoleMesero}
	admin   = Actor{ID: uuid.New(), Name: "Admin", Role: enum.RoleAdministrador}
	cook    = Actor{ID: uuid.New(), Name: "Luis", Role: enum.RoleCocina}
	cashier = Actor{ID: uuid.New(), Name: "Rosa", Role: enum.RoleCajero}
)

func mustCreate(t *testing.T, svc *OrderService, actor Actor, items ...LineInput) *OrderResult {
	t.Helper()
	res, err := svc.Create(context.Background(), actor, items)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return res
}

// --- Create ---

func TestCreate_DecrementsStockAndAudits(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	svc, tx, events := newTestService(store)

	res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 2})

	if got := store.products[cafe].CantidadDisponible; got != 8 {
		t.Errorf("stock: got %d, want 8", got)
	}
	if res.Order.EstadoActual != enum.EstadoPendiente {
		t.Errorf("estado: got %d, want Pendiente", res.Order.EstadoActual)
	}
	if len(res.Lines) != 1 || !numericEquals(res.Lines[0].PrecioUnitario, "15.00") {
		t.Fatalf("lines: got %+v", res.Lines)
	}
	if len(store.audits) != 1 || store.audits[0].Accion != enum.AccionCrearPedido {
		t.Fatalf("audits: got %+v", store.audits)
	}
	wantDesc := "Ana creó el pedido #1 con: 2 x Café (Total: Bs 30.00)"
	if got := store.audits[0].Descripcion.String; got != wantDesc {
		t.Errorf("audit: got %q, want %q", got, wantDesc)
	}
	if !store.audits[0].IDPedido.Valid {
		t.Error("audit should reference the order")
	}
	if len(store.history) != 1 || store.history[0].IDEstado != enum.EstadoPendiente {
		t.Errorf("history: got %+v", store.history)
	}
	if tx.commits != 1 {
		t.Errorf("commits: got %d, want 1", tx.commits)
	}
	if len(events.events) != 1 || events.events[0].Type != notify.OrderCreated {
		t.Errorf("events: got %+v", events.events)
	}
}

func TestCreate_Validation(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	svc, _, _ := newTestService(store)

	tests := []struct {
		name  string
		items []LineInput
		want  error
	}{
		{"empty", nil, ErrEmptyItems},
		{"zero quantity", []LineInput{{ProductID: cafe, Quantity: 0}}, ErrInvalidQuantity},
		{"unknown product", []LineInput{{ProductID: uuid.New(), Quantity: 1}}, ErrProductNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), waiter, tt.items)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error: got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreate_UnavailableProduct(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	store.products[cafe].Disponibilidad = false
	svc, _, _ := newTestService(store)

	_, err := svc.Create(context.Background(), waiter, []LineInput{{ProductID: cafe, Quantity: 1}})
	if !errors.Is(err, ErrProductUnavailable) {
		t.Fatalf("error: got %v, want %v", err, ErrProductUnavailable)
	}
}

func TestCreate_InsufficientStock(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 1)
	svc, tx, _ := newTestService(store)

	_, err := svc.Create(context.Background(), waiter, []LineInput{{ProductID: cafe, Quantity: 2}})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("error: got %v, want %v", err, ErrInsufficientStock)
	}
	if !strings.Contains(err.Error(), "insufficient stock for product Café") {
		t.Errorf("message: got %q", err.Error())
	}
	if store.products[cafe].CantidadDisponible != 1 {
		t.Errorf("stock must never go negative, got %d", store.products[cafe].CantidadDisponible)
	}
	if tx.commits != 0 {
		t.Error("transaction must not commit")
	}
}

func TestCreate_OutsideHours(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	store.hours = []database.ConfigHorariosAtencion{{
		Dia:        "Lunes",
		HoraInicio: pgtype.Time{Microseconds: (8 * time.Hour).Microseconds(), Valid: true},
		HoraFin:    pgtype.Time{Microseconds: (22 * time.Hour).Microseconds(), Valid: true},
	}}
	svc, _, _ := newTestService(store)
	// A Sunday.
	svc.now = func() time.Time { return time.Date(2024, 6, 2, 12, 0, 0, 0, time.UTC) }

	_, err := svc.Create(context.Background(), waiter, []LineInput{{ProductID: cafe, Quantity: 1}})
	if !errors.Is(err, ErrOutsideHours) {
		t.Fatalf("error: got %v, want %v", err, ErrOutsideHours)
	}
	if store.products[cafe].CantidadDisponible != 10 {
		t.Error("stock should be untouched")
	}
}

func TestCreate_BeginError(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	svc := NewOrderService(&mockTxBeginner{err: errors.New("pool closed")},
		func(db database.DBTX) OrderStore { return store }, nil, nil)

	_, err := svc.Create(context.Background(), waiter, []LineInput{{ProductID: cafe, Quantity: 1}})
	if err == nil || !strings.Contains(err.Error(), "begin tx") {
		t.Fatalf("error: got %v, want begin tx error", err)
	}
}

// --- Lifecycle scenario ---

func TestScenario_CreateEditCancelRedo(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	a := store.addProduct("Café", "15.00", 10)
	svc, _, _ := newTestService(store)

	res := mustCreate(t, svc, waiter, LineInput{ProductID: a, Quantity: 2})
	id := res.Order.ID
	if store.products[a].CantidadDisponible != 8 {
		t.Fatalf("after create: stock %d, want 8", store.products[a].CantidadDisponible)
	}

	res, err := svc.Edit(ctx, waiter, id, []LineInput{{ProductID: a, Quantity: 1}})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if store.products[a].CantidadDisponible != 9 {
		t.Errorf("after edit: stock %d, want 9", store.products[a].CantidadDisponible)
	}
	if res.Order.EstadoActual != enum.EstadoModificado {
		t.Errorf("after edit: estado %d, want Modificado", res.Order.EstadoActual)
	}

	res, err = svc.Cancel(ctx, waiter, id)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if res.Order.EstadoActual != enum.EstadoCancelado {
		t.Errorf("after cancel: estado %d, want Cancelado", res.Order.EstadoActual)
	}
	if store.products[a].CantidadDisponible != 9 {
		t.Errorf("cancel must not touch stock: got %d", store.products[a].CantidadDisponible)
	}

	res, err = svc.Redo(ctx, waiter, id)
	if err != nil {
		t.Fatalf("redo: %v", err)
	}
	if res.Order.EstadoActual != enum.EstadoPendiente {
		t.Errorf("after redo: estado %d, want Pendiente", res.Order.EstadoActual)
	}

	wantActions := []string{enum.AccionCrearPedido, enum.AccionEditarPedido, enum.AccionCancelarPedido, enum.AccionRehacerPedido}
	if len(store.audits) != len(wantActions) {
		t.Fatalf("audits: got %d, want %d", len(store.audits), len(wantActions))
	}
	for i, want := range wantActions {
		if store.audits[i].Accion != want {
			t.Errorf("audit[%d]: got %q, want %q", i, store.audits[i].Accion, want)
		}
	}
	if got := store.audits[3].Descripcion.String; got != "Ana reenvió el pedido #1 a cocina (estado: Pendiente)" {
		t.Errorf("redo audit: got %q", got)
	}
	if len(store.history) != 4 {
		t.Errorf("history rows: got %d, want 4", len(store.history))
	}
}

func TestScenario_PayTwice(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	jugo := store.addProduct("Jugo", "7.50", 10)
	svc, _, events := newTestService(store)

	res := mustCreate(t, svc, waiter,
		LineInput{ProductID: cafe, Quantity: 2},
		LineInput{ProductID: jugo, Quantity: 1},
	)

	paid, err := svc.MarkPaid(ctx, cashier, res.Order.ID, enum.MetodoTarjeta)
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if paid.Order.EstadoActual != enum.EstadoPagado {
		t.Errorf("estado: got %d, want Pagado", paid.Order.EstadoActual)
	}
	if paid.Payment == nil || !numericEquals(paid.Payment.Monto, "37.50") || paid.Payment.MetodoPago != "Tarjeta" {
		t.Fatalf("payment: got %+v", paid.Payment)
	}
	if got := store.audits[len(store.audits)-1].Descripcion.String; got != "Rosa marcó como pagado el pedido #1 usando Tarjeta" {
		t.Errorf("audit: got %q", got)
	}
	if last := events.events[len(events.events)-1]; last.Type != notify.OrderPaid {
		t.Errorf("event: got %q, want %q", last.Type, notify.OrderPaid)
	}

	_, err = svc.MarkPaid(ctx, cashier, res.Order.ID, enum.MetodoEfectivo)
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("second pay: got %v, want %v", err, ErrAlreadyPaid)
	}
	if n := store.livePagos(res.Order.ID); n != 1 {
		t.Errorf("live payments: got %d, want 1", n)
	}
}

func TestMarkPaid_GuardsAgainstStrayPayment(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	svc, _, _ := newTestService(store)
	res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 1})

	// A live payment on a non-Pagado order still blocks a second one.
	store.pagos = append(store.pagos, &database.Pago{ID: uuid.New(), IDPedido: res.Order.ID})

	_, err := svc.MarkPaid(context.Background(), cashier, res.Order.ID, enum.MetodoQR)
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("error: got %v, want %v", err, ErrAlreadyPaid)
	}
}

func TestMarkPaid_InvalidMethod(t *testing.T) {
	svc, _, _ := newTestService(newMemStore())
	_, err := svc.MarkPaid(context.Background(), cashier, uuid.New(), "Cheque")
	if !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("error: got %v, want %v", err, ErrInvalidPaymentMethod)
	}
}

func TestUnmarkPaid_AllowsFreshPayment(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	svc, _, _ := newTestService(store)
	res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 1})

	if _, err := svc.UnmarkPaid(ctx, cashier, res.Order.ID); !errors.Is(err, ErrNotPaid) {
		t.Fatalf("unpay unpaid: got %v, want %v", err, ErrNotPaid)
	}

	if _, err := svc.MarkPaid(ctx, cashier, res.Order.ID, enum.MetodoEfectivo); err != nil {
		t.Fatalf("pay: %v", err)
	}
	un, err := svc.UnmarkPaid(ctx, cashier, res.Order.ID)
	if err != nil {
		t.Fatalf("unpay: %v", err)
	}
	if un.Order.EstadoActual != enum.EstadoModificado {
		t.Errorf("estado: got %d, want Modificado", un.Order.EstadoActual)
	}
	if n := store.livePagos(res.Order.ID); n != 0 {
		t.Errorf("live payments after unpay: got %d, want 0", n)
	}

	if _, err := svc.MarkPaid(ctx, cashier, res.Order.ID, enum.MetodoQR); err != nil {
		t.Fatalf("re-pay: %v", err)
	}
	if len(store.pagos) != 2 || store.livePagos(res.Order.ID) != 1 {
		t.Errorf("payments: total %d live %d, want 2 and 1", len(store.pagos), store.livePagos(res.Order.ID))
	}
}

// --- Edit ---

func TestEdit_IdenticalSetIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	jugo := store.addProduct("Jugo", "7.50", 10)
	svc, _, events := newTestService(store)

	res := mustCreate(t, svc, waiter,
		LineInput{ProductID: cafe, Quantity: 2, Comment: "sin azúcar"},
		LineInput{ProductID: jugo, Quantity: 1},
	)
	audits, history, published := len(store.audits), len(store.history), len(events.events)

	// Same multiset, different order, comment padded, one line split in two.
	out, err := svc.Edit(ctx, waiter, res.Order.ID, []LineInput{
		{ProductID: jugo, Quantity: 1},
		{ProductID: cafe, Quantity: 1, Comment: " sin azúcar "},
		{ProductID: cafe, Quantity: 1, Comment: "sin azúcar"},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if out.Changed {
		t.Error("identical edit should report Changed=false")
	}
	if out.Order.EstadoActual != enum.EstadoPendiente {
		t.Errorf("estado: got %d, want Pendiente", out.Order.EstadoActual)
	}
	if len(store.audits) != audits || len(store.history) != history || len(events.events) != published {
		t.Error("identical edit must not audit, record history or publish")
	}
	if store.products[cafe].CantidadDisponible != 8 || store.products[jugo].CantidadDisponible != 9 {
		t.Error("identical edit must not touch stock")
	}
}

func TestEdit_ReconcilesLines(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	jugo := store.addProduct("Jugo", "7.50", 10)
	pan := store.addProduct("Pan", "3.00", 10)
	svc, _, events := newTestService(store)

	res := mustCreate(t, svc, waiter,
		LineInput{ProductID: cafe, Quantity: 2},
		LineInput{ProductID: jugo, Quantity: 1},
	)
	jugoLine := res.Lines[1].ID

	// Price changes after the order was placed.
	store.products[cafe].Precio = makeNumeric("20.00")
	store.products[pan].Precio = makeNumeric("4.00")

	out, err := svc.Edit(ctx, waiter, res.Order.ID, []LineInput{
		{ProductID: cafe, Quantity: 3},
		{ProductID: pan, Quantity: 2},
	})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !out.Changed || out.Order.EstadoActual != enum.EstadoModificado {
		t.Fatalf("result: changed=%v estado=%d", out.Changed, out.Order.EstadoActual)
	}

	if len(out.Lines) != 2 {
		t.Fatalf("lines: got %d, want 2", len(out.Lines))
	}
	kept, added := out.Lines[0], out.Lines[1]
	if kept.IDProducto != cafe || kept.Cantidad != 3 || !numericEquals(kept.PrecioUnitario, "15.00") {
		t.Errorf("kept line should keep its snapshot: got %+v", kept)
	}
	if added.IDProducto != pan || added.Cantidad != 2 || !numericEquals(added.PrecioUnitario, "4.00") {
		t.Errorf("new line should take the current price: got %+v", added)
	}
	if !store.line(jugoLine).Eliminado {
		t.Error("removed line should be soft-deleted")
	}

	if got := store.products[cafe].CantidadDisponible; got != 7 {
		t.Errorf("cafe stock: got %d, want 7", got)
	}
	if got := store.products[jugo].CantidadDisponible; got != 10 {
		t.Errorf("jugo stock: got %d, want 10", got)
	}
	if got := store.products[pan].CantidadDisponible; got != 8 {
		t.Errorf("pan stock: got %d, want 8", got)
	}

	wantDesc := "Ana editó el pedido #1 con: 3 x Café, 2 x Pan (Total: Bs 53.00)"
	if got := store.audits[len(store.audits)-1].Descripcion.String; got != wantDesc {
		t.Errorf("audit: got %q, want %q", got, wantDesc)
	}
	if last := events.events[len(events.events)-1]; last.Type != notify.OrderUpdated {
		t.Errorf("event: got %q", last.Type)
	}
}

func TestEdit_InsufficientStockForIncrease(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 3)
	svc, _, _ := newTestService(store)
	res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 2})

	_, err := svc.Edit(context.Background(), waiter, res.Order.ID, []LineInput{{ProductID: cafe, Quantity: 5}})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("error: got %v, want %v", err, ErrInsufficientStock)
	}
	if store.products[cafe].CantidadDisponible != 1 {
		t.Errorf("stock: got %d, want 1", store.products[cafe].CantidadDisponible)
	}
}

func TestEdit_NotEditableState(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	svc, _, _ := newTestService(store)
	res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 1})
	store.pedidos[res.Order.ID].EstadoActual = enum.EstadoEntregado

	_, err := svc.Edit(context.Background(), admin, res.Order.ID, []LineInput{{ProductID: cafe, Quantity: 2}})
	if !errors.Is(err, ErrNotEditable) {
		t.Fatalf("error: got %v, want %v", err, ErrNotEditable)
	}
}

func TestEdit_AdminGetsOwnerSuffix(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	store.users[waiter.ID] = "Ana"
	svc, _, _ := newTestService(store)
	res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 1})

	if _, err := svc.Edit(context.Background(), admin, res.Order.ID, []LineInput{{ProductID: cafe, Quantity: 2}}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	got := store.audits[len(store.audits)-1].Descripcion.String
	if !strings.HasSuffix(got, " (Pedido creado originalmente por: Ana)") {
		t.Errorf("audit: got %q", got)
	}
}

// --- Waiter rules ---

func TestWaiterRules(t *testing.T) {
	ctx := context.Background()
	other := Actor{ID: uuid.New(), Name: "Pedro", Role: enum.RoleMesero}

	tests := []struct {
		name  string
		setup func(store *memStore, p *database.Pedido)
		actor Actor
		run   func(svc *OrderService, actor Actor, id uuid.UUID) error
		want  error
	}{
		{
			name:  "cancel someone else's order",
			actor: other,
			run: func(svc *OrderService, actor Actor, id uuid.UUID) error {
				_, err := svc.Cancel(ctx, actor, id)
				return err
			},
			want: ErrNotOwner,
		},
		{
			name:  "redo someone else's order",
			actor: other,
			setup: func(store *memStore, p *database.Pedido) { p.EstadoActual = enum.EstadoCancelado },
			run: func(svc *OrderService, actor Actor, id uuid.UUID) error {
				_, err := svc.Redo(ctx, actor, id)
				return err
			},
			want: ErrNotOwner,
		},
		{
			name:  "cancel after window",
			actor: waiter,
			setup: func(store *memStore, p *database.Pedido) { p.FechaHoraRegistro = time.Now().Add(-6 * time.Minute) },
			run: func(svc *OrderService, actor Actor, id uuid.UUID) error {
				_, err := svc.Cancel(ctx, actor, id)
				return err
			},
			want: ErrWindowExpired,
		},
		{
			name:  "cancel modified order with default rules",
			actor: waiter,
			setup: func(store *memStore, p *database.Pedido) { p.EstadoActual = enum.EstadoModificado },
			run: func(svc *OrderService, actor Actor, id uuid.UUID) error {
				_, err := svc.Cancel(ctx, actor, id)
				return err
			},
			want: nil,
		},
		{
			name:  "cancel in preparation with default rules",
			actor: waiter,
			setup: func(store *memStore, p *database.Pedido) { p.EstadoActual = enum.EstadoEnPreparacion },
			run: func(svc *OrderService, actor Actor, id uuid.UUID) error {
				_, err := svc.Cancel(ctx, actor, id)
				return err
			},
			want: ErrActionNotAllowed,
		},
		{
			name:  "edit in non-editable configured state",
			actor: waiter,
			setup: func(store *memStore, p *database.Pedido) { p.EstadoActual = enum.EstadoEnPreparacion },
			run: func(svc *OrderService, actor Actor, id uuid.UUID) error {
				_, err := svc.Edit(ctx, actor, id, []LineInput{{ProductID: uuid.New(), Quantity: 1}})
				return err
			},
			want: ErrActionNotAllowed,
		},
		{
			name:  "per-state rule overrides default window",
			actor: waiter,
			setup: func(store *memStore, p *database.Pedido) {
				store.states = []database.ConfigEstadoPedido{{Estado: "Pendiente", PuedeCancelar: true, TiempoCancelacionMinutos: 30}}
				p.FechaHoraRegistro = time.Now().Add(-20 * time.Minute)
			},
			run: func(svc *OrderService, actor Actor, id uuid.UUID) error {
				_, err := svc.Cancel(ctx, actor, id)
				return err
			},
			want: nil,
		},
		{
			name:  "admin bypasses window",
			actor: admin,
			setup: func(store *memStore, p *database.Pedido) { p.FechaHoraRegistro = time.Now().Add(-time.Hour) },
			run: func(svc *OrderService, actor Actor, id uuid.UUID) error {
				_, err := svc.Cancel(ctx, actor, id)
				return err
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			cafe := store.addProduct("Café", "15.00", 10)
			svc, _, _ := newTestService(store)
			res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 1})
			if tt.setup != nil {
				tt.setup(store, store.pedidos[res.Order.ID])
			}
			audits := len(store.audits)

			err := tt.run(svc, tt.actor, res.Order.ID)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error: got %v, want %v", err, tt.want)
			}
			if len(store.audits) != audits {
				t.Error("rejected action must not audit")
			}
		})
	}
}

// --- Other transitions ---

func TestCancel_RejectedFromTerminalStates(t *testing.T) {
	for _, estado := range []int16{enum.EstadoCancelado, enum.EstadoPagado} {
		t.Run(enum.EstadoNombre(estado), func(t *testing.T) {
			store := newMemStore()
			cafe := store.addProduct("Café", "15.00", 10)
			svc, _, _ := newTestService(store)
			res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 1})
			store.pedidos[res.Order.ID].EstadoActual = estado
			audits := len(store.audits)

			_, err := svc.Cancel(context.Background(), admin, res.Order.ID)
			if !errors.Is(err, ErrCannotCancel) {
				t.Fatalf("error: got %v, want %v", err, ErrCannotCancel)
			}
			if len(store.audits) != audits {
				t.Error("rejected cancel must not audit")
			}
		})
	}
}

func TestReject_AppendsReasonToFirstLine(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	jugo := store.addProduct("Jugo", "7.50", 10)
	svc, _, _ := newTestService(store)
	res := mustCreate(t, svc, waiter,
		LineInput{ProductID: cafe, Quantity: 1, Comment: "caliente"},
		LineInput{ProductID: jugo, Quantity: 1},
	)

	out, err := svc.Reject(context.Background(), cook, res.Order.ID, " sin stock de leche ")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if out.Order.EstadoActual != enum.EstadoRechazado {
		t.Errorf("estado: got %d, want Rechazado", out.Order.EstadoActual)
	}
	if got := out.Lines[0].Comentario.String; got != "caliente\nMotivo rechazo: sin stock de leche" {
		t.Errorf("comment: got %q", got)
	}
	if got := store.audits[len(store.audits)-1].Descripcion.String; got != "Luis rechazó el pedido #1 con motivo: sin stock de leche" {
		t.Errorf("audit: got %q", got)
	}

	if _, err := svc.Reject(context.Background(), cook, res.Order.ID, ""); !errors.Is(err, ErrAlreadyRejected) {
		t.Fatalf("second reject: got %v, want %v", err, ErrAlreadyRejected)
	}

	restored, err := svc.Restore(context.Background(), admin, res.Order.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.Order.EstadoActual != enum.EstadoPendiente {
		t.Errorf("after restore: got %d, want Pendiente", restored.Order.EstadoActual)
	}
	if got := store.audits[len(store.audits)-1].Descripcion.String; !strings.HasPrefix(got, "Admin restauró el pedido #1 desde estado Rechazado a Pendiente") {
		t.Errorf("restore audit: got %q", got)
	}
}

func TestRestore_OnlyFromRechazado(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	svc, _, _ := newTestService(store)
	res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 1})

	if _, err := svc.Restore(context.Background(), admin, res.Order.ID); !errors.Is(err, ErrCannotRestore) {
		t.Fatalf("error: got %v, want %v", err, ErrCannotRestore)
	}
	if _, err := svc.Redo(context.Background(), admin, res.Order.ID); !errors.Is(err, ErrCannotRedo) {
		t.Fatalf("error: got %v, want %v", err, ErrCannotRedo)
	}
}

func TestKitchenSetState(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	svc, _, _ := newTestService(store)
	res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 1})

	for _, to := range []int16{enum.EstadoEnPreparacion, enum.EstadoListoParaServir, enum.EstadoEntregado} {
		out, err := svc.KitchenSetState(ctx, cook, res.Order.ID, to)
		if err != nil {
			t.Fatalf("kitchen → %s: %v", enum.EstadoNombre(to), err)
		}
		if out.Order.EstadoActual != to {
			t.Errorf("estado: got %d, want %d", out.Order.EstadoActual, to)
		}
	}
	if got := store.audits[len(store.audits)-1]; got.Accion != enum.AccionCambiarEstadoPedido ||
		got.Descripcion.String != "Luis cambió el estado del pedido #1 a Entregado" {
		t.Errorf("audit: got %+v", got)
	}

	// Entregado is no longer active.
	if _, err := svc.KitchenSetState(ctx, cook, res.Order.ID, enum.EstadoListoParaServir); !errors.Is(err, ErrKitchenTransition) {
		t.Fatalf("error: got %v, want %v", err, ErrKitchenTransition)
	}
	if _, err := svc.KitchenSetState(ctx, cook, res.Order.ID, enum.EstadoPagado); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("error: got %v, want %v", err, ErrInvalidState)
	}
}

func TestSetState(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	svc, _, events := newTestService(store)
	res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 1})

	out, err := svc.SetState(context.Background(), admin, res.Order.ID, enum.EstadoEntregado)
	if err != nil {
		t.Fatalf("set state: %v", err)
	}
	if out.Order.EstadoActual != enum.EstadoEntregado || out.Previous != enum.EstadoPendiente {
		t.Errorf("result: estado %d previous %d", out.Order.EstadoActual, out.Previous)
	}
	last := events.events[len(events.events)-1]
	if last.Type != notify.OrderStateChanged || last.Payload.EstadoAnterior != "Pendiente" || last.Payload.Estado != "Entregado" {
		t.Errorf("event: got %+v", last)
	}
	if last.Payload.IDUsuarioMesero == nil || *last.Payload.IDUsuarioMesero != waiter.ID {
		t.Error("event should carry the waiter id")
	}

	if _, err := svc.SetState(context.Background(), admin, res.Order.ID, 42); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("error: got %v, want %v", err, ErrInvalidState)
	}
}

func TestSetState_LeavingPagadoDropsPayment(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	svc, _, _ := newTestService(store)
	res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 1})

	if _, err := svc.MarkPaid(ctx, cashier, res.Order.ID, enum.MetodoEfectivo); err != nil {
		t.Fatalf("pay: %v", err)
	}
	out, err := svc.SetState(ctx, admin, res.Order.ID, enum.EstadoEntregado)
	if err != nil {
		t.Fatalf("set state: %v", err)
	}
	if out.Order.EstadoActual != enum.EstadoEntregado || out.Previous != enum.EstadoPagado {
		t.Errorf("result: estado %d previous %d", out.Order.EstadoActual, out.Previous)
	}
	if n := store.livePagos(res.Order.ID); n != 0 {
		t.Fatalf("live payments after leaving Pagado: got %d, want 0", n)
	}

	paid, err := svc.MarkPaid(ctx, cashier, res.Order.ID, enum.MetodoQR)
	if err != nil {
		t.Fatalf("re-pay: %v", err)
	}
	if paid.Payment == nil || paid.Payment.MetodoPago != enum.MetodoQR {
		t.Errorf("payment: got %+v", paid.Payment)
	}
	if len(store.pagos) != 2 || store.livePagos(res.Order.ID) != 1 {
		t.Errorf("payments: total %d live %d, want 2 and 1", len(store.pagos), store.livePagos(res.Order.ID))
	}
}

func TestSetState_PagadoRequiresPayment(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	svc, _, _ := newTestService(store)
	res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 1})
	audits := len(store.audits)

	_, err := svc.SetState(context.Background(), admin, res.Order.ID, enum.EstadoPagado)
	if !errors.Is(err, ErrPaidOnlyByPayment) {
		t.Fatalf("error: got %v, want %v", err, ErrPaidOnlyByPayment)
	}
	if store.pedidos[res.Order.ID].EstadoActual != enum.EstadoPendiente {
		t.Errorf("estado: got %d, want Pendiente", store.pedidos[res.Order.ID].EstadoActual)
	}
	if len(store.audits) != audits || len(store.pagos) != 0 {
		t.Errorf("audits %d pagos %d, want no writes", len(store.audits)-audits, len(store.pagos))
	}
}

func TestTransition_OrderNotFound(t *testing.T) {
	svc, _, _ := newTestService(newMemStore())
	_, err := svc.Cancel(context.Background(), admin, uuid.New())
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("error: got %v, want %v", err, ErrOrderNotFound)
	}
}

func TestTransition_CommitError(t *testing.T) {
	store := newMemStore()
	cafe := store.addProduct("Café", "15.00", 10)
	svc, tx, events := newTestService(store)
	res := mustCreate(t, svc, waiter, LineInput{ProductID: cafe, Quantity: 1})
	published := len(events.events)

	tx.commitErr = errors.New("connection reset")
	_, err := svc.Cancel(context.Background(), admin, res.Order.ID)
	if err == nil || !strings.Contains(err.Error(), "commit tx") {
		t.Fatalf("error: got %v, want commit error", err)
	}
	if len(events.events) != published {
		t.Error("events must only be published after commit")
	}
}
