package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/notify"
	"github.com/typica-pos/api/internal/orderstate"
)

// Errors returned by the order service. Handlers choose the text staff see.
var (
	ErrEmptyItems           = errors.New("order has no items")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrProductNotFound      = errors.New("product not found")
	ErrProductUnavailable   = errors.New("product unavailable")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrOutsideHours         = errors.New("outside attention hours")
	ErrOrderNotFound        = errors.New("order not found")
	ErrCannotCancel         = errors.New("order is already paid or cancelled")
	ErrCannotRedo           = errors.New("only cancelled orders can be redone")
	ErrCannotRestore        = errors.New("only rejected orders can be restored")
	ErrAlreadyRejected      = errors.New("order already rejected")
	ErrAlreadyPaid          = errors.New("order already paid")
	ErrNotPaid              = errors.New("order is not paid")
	ErrNotEditable          = errors.New("order is not editable in its current state")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrInvalidState         = errors.New("invalid order state")
	ErrPaidOnlyByPayment    = errors.New("orders become paid only by recording a payment")
	ErrKitchenTransition    = errors.New("state change not allowed for kitchen")
	ErrNotOwner             = errors.New("order belongs to another waiter")
	ErrWindowExpired        = errors.New("time window for this action has expired")
	ErrActionNotAllowed     = errors.New("action not allowed in the current order state")
)

// InsufficientStockError names the product whose stock ran out.
type InsufficientStockError struct {
	Producto string
}

func (e *InsufficientStockError) Error() string {
	return "insufficient stock for product " + e.Producto
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed by the order workflow.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	RulesStore

	GetProducto(ctx context.Context, id uuid.UUID) (database.Producto, error)
	DecrementStock(ctx context.Context, arg database.DecrementStockParams) (int64, error)
	RestoreStock(ctx context.Context, arg database.RestoreStockParams) error

	CreatePedido(ctx context.Context, arg database.CreatePedidoParams) (database.Pedido, error)
	GetPedidoForUpdate(ctx context.Context, id uuid.UUID) (database.Pedido, error)
	UpdatePedidoEstado(ctx context.Context, arg database.UpdatePedidoEstadoParams) (database.Pedido, error)

	CreateDetallePedido(ctx context.Context, arg database.CreateDetallePedidoParams) (database.Detallepedido, error)
	ListDetallesByPedido(ctx context.Context, pedidoID uuid.UUID) ([]database.DetalleVista, error)
	UpdateDetalleCantidad(ctx context.Context, arg database.UpdateDetalleCantidadParams) error
	UpdateDetalleComentario(ctx context.Context, arg database.UpdateDetalleComentarioParams) error
	SoftDeleteDetalle(ctx context.Context, id uuid.UUID) error

	GetPagoByPedido(ctx context.Context, pedidoID uuid.UUID) (database.Pago, error)
	CreatePago(ctx context.Context, arg database.CreatePagoParams) (database.Pago, error)
	SoftDeletePagoByPedido(ctx context.Context, pedidoID uuid.UUID) (int64, error)

	GetUsuarioNombre(ctx context.Context, id uuid.UUID) (string, error)
	CreateAuditoria(ctx context.Context, arg database.CreateAuditoriaParams) (database.Auditoria, error)
	CreateHistorialEstado(ctx context.Context, arg database.CreateHistorialEstadoParams) error
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// Actor is the authenticated staff member performing an operation.
type Actor struct {
	ID   uuid.UUID
	Name string
	Role string
}

func (a Actor) IsAdmin() bool  { return a.Role == enum.RoleAdministrador }
func (a Actor) IsWaiter() bool { return a.Role == enum.RoleMesero }

// LineInput is one requested order line.
type LineInput struct {
	ProductID uuid.UUID
	Quantity  int32
	Comment   string
}

// OrderResult is an order after a workflow operation, with its live lines.
type OrderResult struct {
	Order    database.Pedido
	Lines    []database.DetalleVista
	Payment  *database.Pago
	Previous int16
	// Changed is false when the operation was a no-op (an edit with an
	// identical line set).
	Changed bool
}

// OrderService handles the order lifecycle.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	events   notify.Publisher
	loc      *time.Location
	now      func() time.Time
}

// NewOrderService creates a new OrderService. events and loc may be nil.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, events notify.Publisher, loc *time.Location) *OrderService {
	if events == nil {
		events = notify.Nop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &OrderService{pool: pool, newStore: newStore, events: events, loc: loc, now: time.Now}
}

// Create validates the lines, takes stock and registers a Pendiente order
// for the actor, all in one transaction.
func (s *OrderService) Create(ctx context.Context, actor Actor, items []LineInput) (*OrderResult, error) {
	if err := validateLines(items); err != nil {
		return nil, err
	}

	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	rules, err := LoadOrderRules(ctx, store)
	if err != nil {
		return nil, err
	}
	if !rules.IsOpen(s.now().In(s.loc)) {
		return nil, ErrOutsideHours
	}

	to, err := orderstate.Next(orderstate.ActionCreate, orderstate.None)
	if err != nil {
		return nil, err
	}

	pedido, err := store.CreatePedido(ctx, database.CreatePedidoParams{
		IDUsuarioMesero: pgUUID(actor.ID),
		EstadoActual:    to,
	})
	if err != nil {
		return nil, fmt.Errorf("create pedido: %w", err)
	}

	for i, item := range items {
		if err := s.addLine(ctx, store, pedido.ID, item); err != nil {
			return nil, fmt.Errorf("item[%d]: %w", i, err)
		}
	}

	if err := store.CreateHistorialEstado(ctx, database.CreateHistorialEstadoParams{
		IDPedido:             pedido.ID,
		IDEstado:             to,
		IDUsuarioResponsable: pgUUID(actor.ID),
	}); err != nil {
		return nil, fmt.Errorf("create historial: %w", err)
	}

	lines, err := store.ListDetallesByPedido(ctx, pedido.ID)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}

	desc := fmt.Sprintf("%s creó el pedido #%d con: %s (Total: Bs %s)",
		actor.Name, pedido.Numero, summarizeLines(lines), linesTotal(lines).StringFixed(2))
	if err := audit(ctx, store, actor, pedido.ID, enum.AccionCrearPedido, desc); err != nil {
		return nil, err
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	result := &OrderResult{Order: pedido, Lines: lines, Previous: orderstate.None, Changed: true}
	s.publish(ctx, notify.OrderCreated, actor, enum.AccionCrearPedido, result)
	return result, nil
}

// change is what a transition step decided: the target state and the audit entry.
// A nil change means nothing happened.
type change struct {
	To          int16
	Accion      string
	Descripcion string
	Event       string
	Payment     *database.Pago
}

// stepFunc runs inside the transaction with the order row locked.
type stepFunc func(ctx context.Context, store OrderStore, p database.Pedido) (*change, error)

// transition locks the order, runs step and applies its change: state
// update, state history, audit row, commit and event.
func (s *OrderService) transition(ctx context.Context, actor Actor, id uuid.UUID, step stepFunc) (*OrderResult, error) {
	// --- Begin transaction ---
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	pedido, err := store.GetPedidoForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock pedido: %w", err)
	}

	ch, err := step(ctx, store, pedido)
	if err != nil {
		return nil, err
	}

	result := &OrderResult{Order: pedido, Previous: pedido.EstadoActual}
	if ch != nil {
		updated, err := store.UpdatePedidoEstado(ctx, database.UpdatePedidoEstadoParams{ID: pedido.ID, EstadoActual: ch.To})
		if err != nil {
			return nil, fmt.Errorf("update estado: %w", err)
		}
		if err := store.CreateHistorialEstado(ctx, database.CreateHistorialEstadoParams{
			IDPedido:             pedido.ID,
			IDEstado:             ch.To,
			IDUsuarioResponsable: pgUUID(actor.ID),
		}); err != nil {
			return nil, fmt.Errorf("create historial: %w", err)
		}
		if err := audit(ctx, store, actor, pedido.ID, ch.Accion, ch.Descripcion); err != nil {
			return nil, err
		}
		result.Order = updated
		result.Payment = ch.Payment
		result.Changed = true
	}

	result.Lines, err = store.ListDetallesByPedido(ctx, pedido.ID)
	if err != nil {
		return nil, fmt.Errorf("list lines: %w", err)
	}

	// --- Commit ---
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	if ch != nil {
		s.publish(ctx, ch.Event, actor, ch.Accion, result)
	}
	return result, nil
}

func (s *OrderService) publish(ctx context.Context, typ string, actor Actor, accion string, r *OrderResult) {
	payload := notify.OrderPayload{
		ID:       r.Order.ID,
		Numero:   r.Order.Numero,
		Estado:   enum.EstadoNombre(r.Order.EstadoActual),
		EstadoID: r.Order.EstadoActual,
		Accion:   accion,
		Usuario:  actor.Name,
	}
	if r.Previous != orderstate.None {
		payload.EstadoAnterior = enum.EstadoNombre(r.Previous)
	}
	if r.Order.IDUsuarioMesero.Valid {
		mesero := uuid.UUID(r.Order.IDUsuarioMesero.Bytes)
		payload.IDUsuarioMesero = &mesero
	}
	if err := s.events.Publish(ctx, notify.Event{Type: typ, Payload: payload}); err != nil {
		log.Printf("WARNING: publish %s for pedido #%d: %v", typ, r.Order.Numero, err)
	}
}

// --- Helpers ---

func validateLines(items []LineInput) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}
	for i, item := range items {
		if item.Quantity < 1 {
			return fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
	}
	return nil
}

// addLine inserts a new line at the product's current price and takes its stock.
func (s *OrderService) addLine(ctx context.Context, store OrderStore, pedidoID uuid.UUID, item LineInput) error {
	product, err := store.GetProducto(ctx, item.ProductID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrProductNotFound
		}
		return fmt.Errorf("get producto: %w", err)
	}
	if !product.Disponibilidad {
		return fmt.Errorf("%s: %w", product.Nombre, ErrProductUnavailable)
	}

	if err := takeStock(ctx, store, product.ID, product.Nombre, item.Quantity); err != nil {
		return err
	}

	_, err = store.CreateDetallePedido(ctx, database.CreateDetallePedidoParams{
		IDPedido:       pedidoID,
		IDProducto:     product.ID,
		Cantidad:       item.Quantity,
		Comentario:     optionalText(strings.TrimSpace(item.Comment)),
		PrecioUnitario: product.Precio,
	})
	if err != nil {
		return fmt.Errorf("create detalle: %w", err)
	}
	return nil
}

// takeStock decrements stock only if enough is available.
func takeStock(ctx context.Context, store OrderStore, productID uuid.UUID, name string, qty int32) error {
	n, err := store.DecrementStock(ctx, database.DecrementStockParams{ID: productID, Cantidad: qty})
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if n == 0 {
		return &InsufficientStockError{Producto: name}
	}
	return nil
}

func giveStock(ctx context.Context, store OrderStore, productID uuid.UUID, qty int32) error {
	if err := store.RestoreStock(ctx, database.RestoreStockParams{ID: productID, Cantidad: qty}); err != nil {
		return fmt.Errorf("restore stock: %w", err)
	}
	return nil
}

func audit(ctx context.Context, store OrderStore, actor Actor, pedidoID uuid.UUID, accion, desc string) error {
	_, err := store.CreateAuditoria(ctx, database.CreateAuditoriaParams{
		IDUsuario:   pgUUID(actor.ID),
		IDPedido:    pgtype.UUID{Bytes: pedidoID, Valid: true},
		Accion:      accion,
		Descripcion: pgtype.Text{String: desc, Valid: true},
	})
	if err != nil {
		return fmt.Errorf("create auditoria: %w", err)
	}
	return nil
}

// summarizeLines renders "2 x Café, 1 x Jugo".
func summarizeLines(lines []database.DetalleVista) string {
	parts := make([]string, 0, len(lines))
	for _, l := range lines {
		parts = append(parts, fmt.Sprintf("%d x %s", l.Cantidad, l.ProductoNombre))
	}
	return strings.Join(parts, ", ")
}

// linesTotal is Σ quantity × price snapshot.
func linesTotal(lines []database.DetalleVista) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(numericToDecimal(l.PrecioUnitario).Mul(decimal.NewFromInt32(l.Cantidad)))
	}
	return total
}

func pgUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

func optionalText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
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

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
