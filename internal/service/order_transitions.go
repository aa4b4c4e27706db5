package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/notify"
	"github.com/typica-pos/api/internal/orderstate"
)

// Edit reconciles the order's live lines with items. Kept lines keep their
// price snapshot; only quantity deltas touch stock. An identical line set is
// a no-op (Changed is false and nothing is written).
func (s *OrderService) Edit(ctx context.Context, actor Actor, id uuid.UUID, items []LineInput) (*OrderResult, error) {
	if err := validateLines(items); err != nil {
		return nil, err
	}

	return s.transition(ctx, actor, id, func(ctx context.Context, store OrderStore, p database.Pedido) (*change, error) {
		to, err := orderstate.Next(orderstate.ActionEdit, p.EstadoActual)
		if err != nil {
			return nil, ErrNotEditable
		}
		if err := s.checkWaiter(ctx, store, actor, p, orderstate.ActionEdit); err != nil {
			return nil, err
		}

		current, err := store.ListDetallesByPedido(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list lines: %w", err)
		}

		changed, err := s.reconcile(ctx, store, p.ID, current, items)
		if err != nil || !changed {
			return nil, err
		}

		lines, err := store.ListDetallesByPedido(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list lines: %w", err)
		}
		suffix, err := ownerSuffix(ctx, store, actor, p)
		if err != nil {
			return nil, err
		}
		return &change{
			To:     to,
			Accion: enum.AccionEditarPedido,
			Descripcion: fmt.Sprintf("%s editó el pedido #%d con: %s (Total: Bs %s)%s",
				actor.Name, p.Numero, summarizeLines(lines), linesTotal(lines).StringFixed(2), suffix),
			Event: notify.OrderUpdated,
		}, nil
	})
}

// lineKey identifies a line for reconciliation.
type lineKey struct {
	product uuid.UUID
	comment string
}

// lineGroup collects the live lines sharing a key, first line first.
type lineGroup struct {
	lines []database.DetalleVista
	total int32
}

// reconcile applies the difference between the current lines and items.
// It reports false when both sets are equal after merging duplicate keys.
func (s *OrderService) reconcile(ctx context.Context, store OrderStore, pedidoID uuid.UUID, current []database.DetalleVista, items []LineInput) (bool, error) {
	have := make(map[lineKey]*lineGroup)
	var haveOrder []lineKey
	for _, l := range current {
		k := lineKey{product: l.IDProducto, comment: strings.TrimSpace(l.Comentario.String)}
		g, ok := have[k]
		if !ok {
			g = &lineGroup{}
			have[k] = g
			haveOrder = append(haveOrder, k)
		}
		g.lines = append(g.lines, l)
		g.total += l.Cantidad
	}

	want := make(map[lineKey]int32)
	var wantOrder []lineKey
	for _, item := range items {
		k := lineKey{product: item.ProductID, comment: strings.TrimSpace(item.Comment)}
		if _, ok := want[k]; !ok {
			wantOrder = append(wantOrder, k)
		}
		want[k] += item.Quantity
	}

	if sameLines(have, want) {
		return false, nil
	}

	for _, k := range haveOrder {
		g := have[k]
		qty, kept := want[k]
		if !kept {
			for _, l := range g.lines {
				if err := store.SoftDeleteDetalle(ctx, l.ID); err != nil {
					return false, fmt.Errorf("delete detalle: %w", err)
				}
			}
			if err := giveStock(ctx, store, k.product, g.total); err != nil {
				return false, err
			}
			continue
		}

		// Duplicates collapse onto the first line, keeping its snapshot.
		first := g.lines[0]
		for _, l := range g.lines[1:] {
			if err := store.SoftDeleteDetalle(ctx, l.ID); err != nil {
				return false, fmt.Errorf("delete detalle: %w", err)
			}
		}
		switch delta := qty - g.total; {
		case delta > 0:
			if err := takeStock(ctx, store, k.product, first.ProductoNombre, delta); err != nil {
				return false, err
			}
		case delta < 0:
			if err := giveStock(ctx, store, k.product, -delta); err != nil {
				return false, err
			}
		}
		if first.Cantidad != qty {
			if err := store.UpdateDetalleCantidad(ctx, database.UpdateDetalleCantidadParams{ID: first.ID, Cantidad: qty}); err != nil {
				return false, fmt.Errorf("update cantidad: %w", err)
			}
		}
	}

	for i, k := range wantOrder {
		if _, ok := have[k]; ok {
			continue
		}
		item := LineInput{ProductID: k.product, Quantity: want[k], Comment: k.comment}
		if err := s.addLine(ctx, store, pedidoID, item); err != nil {
			return false, fmt.Errorf("item[%d]: %w", i, err)
		}
	}
	return true, nil
}

// sameLines reports whether both sides hold the same (product, comment)
// keys with the same merged quantities.
func sameLines(have map[lineKey]*lineGroup, want map[lineKey]int32) bool {
	if len(have) != len(want) {
		return false
	}
	for k, g := range have {
		if q, ok := want[k]; !ok || q != g.total {
			return false
		}
	}
	return true
}

// Cancel moves the order to Cancelado. Stock is not returned.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, id uuid.UUID) (*OrderResult, error) {
	return s.transition(ctx, actor, id, func(ctx context.Context, store OrderStore, p database.Pedido) (*change, error) {
		to, err := orderstate.Next(orderstate.ActionCancel, p.EstadoActual)
		if err != nil {
			return nil, ErrCannotCancel
		}
		if err := s.checkWaiter(ctx, store, actor, p, orderstate.ActionCancel); err != nil {
			return nil, err
		}
		suffix, err := ownerSuffix(ctx, store, actor, p)
		if err != nil {
			return nil, err
		}
		return &change{
			To:          to,
			Accion:      enum.AccionCancelarPedido,
			Descripcion: fmt.Sprintf("%s canceló el pedido #%d%s", actor.Name, p.Numero, suffix),
			Event:       notify.OrderStateChanged,
		}, nil
	})
}

// Redo sends a cancelled order back to the kitchen as Pendiente.
func (s *OrderService) Redo(ctx context.Context, actor Actor, id uuid.UUID) (*OrderResult, error) {
	return s.transition(ctx, actor, id, func(ctx context.Context, store OrderStore, p database.Pedido) (*change, error) {
		to, err := orderstate.Next(orderstate.ActionRedo, p.EstadoActual)
		if err != nil {
			return nil, ErrCannotRedo
		}
		if err := s.checkWaiter(ctx, store, actor, p, orderstate.ActionRedo); err != nil {
			return nil, err
		}
		suffix, err := ownerSuffix(ctx, store, actor, p)
		if err != nil {
			return nil, err
		}
		return &change{
			To:     to,
			Accion: enum.AccionRehacerPedido,
			Descripcion: fmt.Sprintf("%s reenvió el pedido #%d a cocina (estado: %s)%s",
				actor.Name, p.Numero, enum.EstadoNombre(to), suffix),
			Event: notify.OrderStateChanged,
		}, nil
	})
}

// Restore brings a rejected order back to Pendiente.
func (s *OrderService) Restore(ctx context.Context, actor Actor, id uuid.UUID) (*OrderResult, error) {
	return s.transition(ctx, actor, id, func(ctx context.Context, store OrderStore, p database.Pedido) (*change, error) {
		to, err := orderstate.Next(orderstate.ActionRestore, p.EstadoActual)
		if err != nil {
			return nil, ErrCannotRestore
		}
		suffix, err := ownerSuffix(ctx, store, actor, p)
		if err != nil {
			return nil, err
		}
		return &change{
			To:     to,
			Accion: enum.AccionRestaurarRechazado,
			Descripcion: fmt.Sprintf("%s restauró el pedido #%d desde estado %s a %s%s",
				actor.Name, p.Numero, enum.EstadoNombre(p.EstadoActual), enum.EstadoNombre(to), suffix),
			Event: notify.OrderStateChanged,
		}, nil
	})
}

// Reject marks the order Rechazado. A non-empty reason is appended to the
// first line's comment so the waiter sees it on the order.
func (s *OrderService) Reject(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*OrderResult, error) {
	reason = strings.TrimSpace(reason)
	return s.transition(ctx, actor, id, func(ctx context.Context, store OrderStore, p database.Pedido) (*change, error) {
		to, err := orderstate.Next(orderstate.ActionReject, p.EstadoActual)
		if err != nil {
			return nil, ErrAlreadyRejected
		}

		desc := fmt.Sprintf("%s rechazó el pedido #%d", actor.Name, p.Numero)
		if reason != "" {
			lines, err := store.ListDetallesByPedido(ctx, p.ID)
			if err != nil {
				return nil, fmt.Errorf("list lines: %w", err)
			}
			if len(lines) > 0 {
				first := lines[0]
				comment := first.Comentario.String + "\nMotivo rechazo: " + reason
				if err := store.UpdateDetalleComentario(ctx, database.UpdateDetalleComentarioParams{
					ID:         first.ID,
					Comentario: pgtype.Text{String: comment, Valid: true},
				}); err != nil {
					return nil, fmt.Errorf("update comentario: %w", err)
				}
			}
			desc += " con motivo: " + reason
		}
		return &change{
			To:          to,
			Accion:      enum.AccionRechazarPedido,
			Descripcion: desc,
			Event:       notify.OrderStateChanged,
		}, nil
	})
}

// MarkPaid records the single live payment of an order for the sum of its
// line subtotals and moves it to Pagado.
func (s *OrderService) MarkPaid(ctx context.Context, actor Actor, id uuid.UUID, method string) (*OrderResult, error) {
	if !enum.IsMetodoPago(method) {
		return nil, ErrInvalidPaymentMethod
	}
	return s.transition(ctx, actor, id, func(ctx context.Context, store OrderStore, p database.Pedido) (*change, error) {
		to, err := orderstate.Next(orderstate.ActionPay, p.EstadoActual)
		if err != nil {
			return nil, ErrAlreadyPaid
		}
		_, err = store.GetPagoByPedido(ctx, p.ID)
		switch {
		case err == nil:
			return nil, ErrAlreadyPaid
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, fmt.Errorf("get pago: %w", err)
		}

		lines, err := store.ListDetallesByPedido(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("list lines: %w", err)
		}
		pago, err := store.CreatePago(ctx, database.CreatePagoParams{
			IDPedido:   p.ID,
			Monto:      decimalToNumeric(linesTotal(lines)),
			MetodoPago: method,
		})
		if err != nil {
			return nil, fmt.Errorf("create pago: %w", err)
		}
		return &change{
			To:          to,
			Accion:      enum.AccionPagoPedido,
			Descripcion: fmt.Sprintf("%s marcó como pagado el pedido #%d usando %s", actor.Name, p.Numero, method),
			Event:       notify.OrderPaid,
			Payment:     &pago,
		}, nil
	})
}

// UnmarkPaid soft-deletes the live payment and returns the order to Modificado.
func (s *OrderService) UnmarkPaid(ctx context.Context, actor Actor, id uuid.UUID) (*OrderResult, error) {
	return s.transition(ctx, actor, id, func(ctx context.Context, store OrderStore, p database.Pedido) (*change, error) {
		to, err := orderstate.Next(orderstate.ActionUnpay, p.EstadoActual)
		if err != nil {
			return nil, ErrNotPaid
		}
		if _, err := store.SoftDeletePagoByPedido(ctx, p.ID); err != nil {
			return nil, fmt.Errorf("delete pago: %w", err)
		}
		return &change{
			To:          to,
			Accion:      enum.AccionRehacerPago,
			Descripcion: fmt.Sprintf("%s marcó como NO pagado el pedido #%d", actor.Name, p.Numero),
			Event:       notify.OrderStateChanged,
		}, nil
	})
}

// SetState forces any known state except Pagado, which only MarkPaid
// reaches so that a payment always backs it. Leaving Pagado soft-deletes
// the live payment. Administrators only.
func (s *OrderService) SetState(ctx context.Context, actor Actor, id uuid.UUID, estado int16) (*OrderResult, error) {
	if !orderstate.ValidState(estado) {
		return nil, ErrInvalidState
	}
	if estado == enum.EstadoPagado {
		return nil, ErrPaidOnlyByPayment
	}
	return s.transition(ctx, actor, id, func(ctx context.Context, store OrderStore, p database.Pedido) (*change, error) {
		if p.EstadoActual == enum.EstadoPagado {
			if _, err := store.SoftDeletePagoByPedido(ctx, p.ID); err != nil {
				return nil, fmt.Errorf("delete pago: %w", err)
			}
		}
		return &change{
			To:          estado,
			Accion:      enum.AccionCambiarEstado,
			Descripcion: fmt.Sprintf("%s cambió el estado del pedido #%d a %s", actor.Name, p.Numero, enum.EstadoNombre(estado)),
			Event:       notify.OrderStateChanged,
		}, nil
	})
}

// KitchenSetState moves an active order to En preparación, Listo para servir or Entregado.
func (s *OrderService) KitchenSetState(ctx context.Context, actor Actor, id uuid.UUID, estado int16) (*OrderResult, error) {
	if !orderstate.IsKitchenTarget(estado) {
		return nil, ErrInvalidState
	}
	return s.transition(ctx, actor, id, func(ctx context.Context, store OrderStore, p database.Pedido) (*change, error) {
		if err := orderstate.CanKitchenMove(p.EstadoActual, estado); err != nil {
			return nil, ErrKitchenTransition
		}
		return &change{
			To:          estado,
			Accion:      enum.AccionCambiarEstadoPedido,
			Descripcion: fmt.Sprintf("%s cambió el estado del pedido #%d a %s", actor.Name, p.Numero, enum.EstadoNombre(estado)),
			Event:       notify.OrderStateChanged,
		}, nil
	})
}

// checkWaiter applies the configured waiter policy. Other roles pass.
func (s *OrderService) checkWaiter(ctx context.Context, store OrderStore, actor Actor, p database.Pedido, action orderstate.Action) error {
	if !actor.IsWaiter() {
		return nil
	}
	if !p.IDUsuarioMesero.Valid || uuid.UUID(p.IDUsuarioMesero.Bytes) != actor.ID {
		return ErrNotOwner
	}
	if action == orderstate.ActionRedo {
		return nil
	}

	rules, err := LoadOrderRules(ctx, store)
	if err != nil {
		return err
	}
	rule := rules.Rule(enum.EstadoNombre(p.EstadoActual))

	allowed, minutes := rule.CanEdit, rule.EditMinutes
	if action == orderstate.ActionCancel {
		allowed, minutes = rule.CanCancel, rule.CancelMinutes
	}
	if !allowed {
		return ErrActionNotAllowed
	}
	if s.now().Sub(p.FechaHoraRegistro) > time.Duration(minutes)*time.Minute {
		return ErrWindowExpired
	}
	return nil
}

// ownerSuffix names the order's waiter when someone else acts on it.
func ownerSuffix(ctx context.Context, store OrderStore, actor Actor, p database.Pedido) (string, error) {
	if !p.IDUsuarioMesero.Valid {
		return "", nil
	}
	mesero := uuid.UUID(p.IDUsuarioMesero.Bytes)
	if mesero == actor.ID {
		return "", nil
	}
	name, err := store.GetUsuarioNombre(ctx, mesero)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("get mesero: %w", err)
	}
	return " (Pedido creado originalmente por: " + name + ")", nil
}
