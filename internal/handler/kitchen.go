package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/typica-pos/api/internal/database"
	"github.com/typica-pos/api/internal/enum"
	"github.com/typica-pos/api/internal/service"
)

// kitchenActive are the states shown on the kitchen board.
var kitchenActive = []int16{
	enum.EstadoPendiente,
	enum.EstadoModificado,
	enum.EstadoEnPreparacion,
	enum.EstadoListoParaServir,
	enum.EstadoEntregado,
	enum.EstadoRechazado,
}

var editedItemsRe = regexp.MustCompile(`con: (.*) \(Total:`)

// KitchenServicer is the order operation available to the kitchen.
// Satisfied by *service.OrderService.
type KitchenServicer interface {
	KitchenSetState(ctx context.Context, actor service.Actor, id uuid.UUID, estado int16) (*service.OrderResult, error)
}

// KitchenStore defines the database methods needed by kitchen handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type KitchenStore interface {
	ListPedidosVistaByEstadosAsc(ctx context.Context, estados []int16) ([]database.PedidoVista, error)
	ListPedidosVistaByEstadosDesc(ctx context.Context, estados []int16) ([]database.PedidoVista, error)
	ListDetallesByPedidos(ctx context.Context, pedidoIDs []uuid.UUID) ([]database.DetalleVista, error)
	GetUltimaEdicionPedido(ctx context.Context, pedidoID pgtype.UUID) (database.Auditoria, error)
}

// KitchenHandler handles the kitchen board endpoints.
type KitchenHandler struct {
	svc   KitchenServicer
	store KitchenStore
}

// NewKitchenHandler creates a new KitchenHandler.
func NewKitchenHandler(svc KitchenServicer, store KitchenStore) *KitchenHandler {
	return &KitchenHandler{svc: svc, store: store}
}

// RegisterRoutes registers kitchen endpoints. Mounted at /kitchen.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/orders", h.Board)
	r.Get("/orders/canceled", h.listByStates(enum.EstadoCancelado))
	r.Get("/orders/delivered", h.listByStates(enum.EstadoEntregado))
	r.Get("/orders/completed", h.listByStates(enum.EstadoEntregado, enum.EstadoPagado))
	r.Patch("/orders/{id}/state", h.SetState)
}

// --- Request / Response types ---

type kitchenOrderResponse struct {
	orderResponse
	NuevosDetalles []string `json:"nuevos_detalles"`
}

type kitchenBoardResponse struct {
	Activos    []kitchenOrderResponse `json:"activos"`
	Cancelados []kitchenOrderResponse `json:"cancelados"`
}

// --- Handlers ---

// Board handles GET /kitchen/orders. Modified orders carry the item list
// of their latest edit.
func (h *KitchenHandler) Board(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	activos, err := h.store.ListPedidosVistaByEstadosAsc(ctx, kitchenActive)
	if err != nil {
		log.Printf("ERROR: list kitchen orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}
	cancelados, err := h.store.ListPedidosVistaByEstadosDesc(ctx, []int16{enum.EstadoCancelado})
	if err != nil {
		log.Printf("ERROR: list canceled orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	resp := kitchenBoardResponse{}
	if resp.Activos, err = h.kitchenOrders(ctx, activos, true); err == nil {
		resp.Cancelados, err = h.kitchenOrders(ctx, cancelados, false)
	}
	if err != nil {
		log.Printf("ERROR: build kitchen board: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// SetState handles PATCH /kitchen/orders/{id}/state with {"estado": name}.
func (h *KitchenHandler) SetState(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	estado, ok := decodeTargetState(w, r)
	if !ok {
		return
	}

	result, err := h.svc.KitchenSetState(r.Context(), actor, id, estado)
	if err != nil {
		writeOrderError(w, err, "kitchen set state", "")
		return
	}
	writeJSON(w, http.StatusOK, toResultResponse(result))
}

func (h *KitchenHandler) listByStates(estados ...int16) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pedidos, err := h.store.ListPedidosVistaByEstadosDesc(r.Context(), estados)
		if err != nil {
			log.Printf("ERROR: list kitchen orders %v: %v", estados, err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
			return
		}
		orders, err := withLines(r.Context(), h.store, pedidos)
		if err != nil {
			log.Printf("ERROR: list order lines: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": msgInternal})
			return
		}
		writeJSON(w, http.StatusOK, orders)
	}
}

// --- Helpers ---

func (h *KitchenHandler) kitchenOrders(ctx context.Context, pedidos []database.PedidoVista, withEdits bool) ([]kitchenOrderResponse, error) {
	orders, err := withLines(ctx, h.store, pedidos)
	if err != nil {
		return nil, err
	}

	out := make([]kitchenOrderResponse, len(orders))
	for i, o := range orders {
		out[i] = kitchenOrderResponse{orderResponse: o, NuevosDetalles: []string{}}
		if !withEdits || o.IDEstado != enum.EstadoModificado {
			continue
		}
		a, err := h.store.GetUltimaEdicionPedido(ctx, pgtype.UUID{Bytes: o.ID, Valid: true})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				continue
			}
			return nil, err
		}
		out[i].NuevosDetalles = parseEditedItems(a.Descripcion.String)
	}
	return out, nil
}

// parseEditedItems extracts "2 x Café" style items from an edit audit.
func parseEditedItems(desc string) []string {
	m := editedItemsRe.FindStringSubmatch(desc)
	if m == nil {
		return []string{}
	}
	parts := strings.Split(m[1], ",")
	items := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			items = append(items, p)
		}
	}
	return items
}
