package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createDetallePedido = `-- name: CreateDetallePedido :one
INSERT INTO detallepedido (id_pedido, id_producto, cantidad, comentario, precio_unitario)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, id_pedido, id_producto, cantidad, comentario, precio_unitario, orden, eliminado
`

type CreateDetallePedidoParams struct {
	IDPedido       uuid.UUID      `json:"id_pedido"`
	IDProducto     uuid.UUID      `json:"id_producto"`
	Cantidad       int32          `json:"cantidad"`
	Comentario     pgtype.Text    `json:"comentario"`
	PrecioUnitario pgtype.Numeric `json:"precio_unitario"`
}

func (q *Queries) CreateDetallePedido(ctx context.Context, arg CreateDetallePedidoParams) (Detallepedido, error) {
	row := q.db.QueryRow(ctx, createDetallePedido,
		arg.IDPedido,
		arg.IDProducto,
		arg.Cantidad,
		arg.Comentario,
		arg.PrecioUnitario,
	)
	var i Detallepedido
	err := row.Scan(
		&i.ID,
		&i.IDPedido,
		&i.IDProducto,
		&i.Cantidad,
		&i.Comentario,
		&i.PrecioUnitario,
		&i.Orden,
		&i.Eliminado,
	)
	return i, err
}

const listDetallesByPedidos = `-- name: ListDetallesByPedidos :many
SELECT d.id, d.id_pedido, d.id_producto, d.cantidad, d.comentario, d.precio_unitario, d.orden,
       p.nombre AS producto_nombre
FROM detallepedido_activo d
JOIN producto p ON p.id = d.id_producto
WHERE d.id_pedido = ANY($1::uuid[])
ORDER BY d.id_pedido, d.orden
`

// DetalleVista is an order line with the product name. The product is
// joined on the base table so lines of later-deleted products still render.
type DetalleVista struct {
	ID             uuid.UUID      `json:"id"`
	IDPedido       uuid.UUID      `json:"id_pedido"`
	IDProducto     uuid.UUID      `json:"id_producto"`
	Cantidad       int32          `json:"cantidad"`
	Comentario     pgtype.Text    `json:"comentario"`
	PrecioUnitario pgtype.Numeric `json:"precio_unitario"`
	Orden          int32          `json:"orden"`
	ProductoNombre string         `json:"producto_nombre"`
}

func (q *Queries) ListDetallesByPedidos(ctx context.Context, pedidoIDs []uuid.UUID) ([]DetalleVista, error) {
	rows, err := q.db.Query(ctx, listDetallesByPedidos, pedidoIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []DetalleVista{}
	for rows.Next() {
		var i DetalleVista
		if err := rows.Scan(
			&i.ID,
			&i.IDPedido,
			&i.IDProducto,
			&i.Cantidad,
			&i.Comentario,
			&i.PrecioUnitario,
			&i.Orden,
			&i.ProductoNombre,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ListDetallesByPedido returns the live lines of one order.
func (q *Queries) ListDetallesByPedido(ctx context.Context, pedidoID uuid.UUID) ([]DetalleVista, error) {
	return q.ListDetallesByPedidos(ctx, []uuid.UUID{pedidoID})
}

const updateDetalleCantidad = `-- name: UpdateDetalleCantidad :exec
UPDATE detallepedido_activo
SET cantidad = $2
WHERE id = $1
`

type UpdateDetalleCantidadParams struct {
	ID       uuid.UUID `json:"id"`
	Cantidad int32     `json:"cantidad"`
}

func (q *Queries) UpdateDetalleCantidad(ctx context.Context, arg UpdateDetalleCantidadParams) error {
	_, err := q.db.Exec(ctx, updateDetalleCantidad, arg.ID, arg.Cantidad)
	return err
}

const updateDetalleComentario = `-- name: UpdateDetalleComentario :exec
UPDATE detallepedido_activo
SET comentario = $2
WHERE id = $1
`

type UpdateDetalleComentarioParams struct {
	ID         uuid.UUID   `json:"id"`
	Comentario pgtype.Text `json:"comentario"`
}

func (q *Queries) UpdateDetalleComentario(ctx context.Context, arg UpdateDetalleComentarioParams) error {
	_, err := q.db.Exec(ctx, updateDetalleComentario, arg.ID, arg.Comentario)
	return err
}

const softDeleteDetalle = `-- name: SoftDeleteDetalle :exec
UPDATE detallepedido_activo
SET eliminado = true
WHERE id = $1
`

func (q *Queries) SoftDeleteDetalle(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, softDeleteDetalle, id)
	return err
}
