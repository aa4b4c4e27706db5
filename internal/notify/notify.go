// Package notify fans order events out to live boards and external consumers.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/ws"
)

// Event types.
const (
	OrderCreated      = "order.created"
	OrderUpdated      = "order.updated"
	OrderStateChanged = "order.state_changed"
	OrderPaid         = "order.paid"
)

// Event is one order event as delivered to subscribers.
type Event struct {
	Type    string       `json:"type"`
	Payload OrderPayload `json:"payload"`
}

type OrderPayload struct {
	ID              uuid.UUID  `json:"id"`
	Numero          int64      `json:"numero"`
	Estado          string     `json:"estado"`
	EstadoID        int16      `json:"estado_id"`
	EstadoAnterior  string     `json:"estado_anterior,omitempty"`
	IDUsuarioMesero *uuid.UUID `json:"id_usuario_mesero"`
	Accion          string     `json:"accion"`
	Usuario         string     `json:"usuario"`
}

// Publisher delivers order events. Implementations must be safe for
// concurrent use.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Broadcaster is satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToRooms(rooms []string, event ws.Event)
}

// HubPublisher pushes events to the WebSocket rooms that follow an order:
// kitchen, cashier and admin boards, plus the owning waiter.
type HubPublisher struct {
	hub Broadcaster
}

func NewHubPublisher(hub Broadcaster) *HubPublisher {
	return &HubPublisher{hub: hub}
}

func (p *HubPublisher) Publish(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	p.hub.BroadcastToRooms(Rooms(ev.Payload), ws.Event{Type: ev.Type, Payload: payload})
	return nil
}

// Rooms lists the WebSocket rooms interested in an order.
func Rooms(p OrderPayload) []string {
	rooms := []string{
		ws.RoleRoom(enum.RoleCocina),
		ws.RoleRoom(enum.RoleCajero),
		ws.RoleRoom(enum.RoleAdministrador),
	}
	if p.IDUsuarioMesero != nil {
		rooms = append(rooms, ws.UserRoom(p.IDUsuarioMesero.String()))
	}
	return rooms
}
