package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const getPagoByPedido = `-- name: GetPagoByPedido :one
SELECT id, id_pedido, monto, metodo_pago, fecha_pago, eliminado
FROM pago_activo
WHERE id_pedido = $1
LIMIT 1
`

func (q *Queries) GetPagoByPedido(ctx context.Context, pedidoID uuid.UUID) (Pago, error) {
	row := q.db.QueryRow(ctx, getPagoByPedido, pedidoID)
	var i Pago
	err := row.Scan(
		&i.ID,
		&i.IDPedido,
		&i.Monto,
		&i.MetodoPago,
		&i.FechaPago,
		&i.Eliminado,
	)
	return i, err
}

const createPago = `-- name: CreatePago :one
INSERT INTO pago (id_pedido, monto, metodo_pago)
VALUES ($1, $2, $3)
RETURNING id, id_pedido, monto, metodo_pago, fecha_pago, eliminado
`

type CreatePagoParams struct {
	IDPedido   uuid.UUID      `json:"id_pedido"`
	Monto      pgtype.Numeric `json:"monto"`
	MetodoPago string         `json:"metodo_pago"`
}

func (q *Queries) CreatePago(ctx context.Context, arg CreatePagoParams) (Pago, error) {
	row := q.db.QueryRow(ctx, createPago, arg.IDPedido, arg.Monto, arg.MetodoPago)
	var i Pago
	err := row.Scan(
		&i.ID,
		&i.IDPedido,
		&i.Monto,
		&i.MetodoPago,
		&i.FechaPago,
		&i.Eliminado,
	)
	return i, err
}

const softDeletePagoByPedido = `-- name: SoftDeletePagoByPedido :execrows
UPDATE pago_activo
SET eliminado = true
WHERE id_pedido = $1
`

func (q *Queries) SoftDeletePagoByPedido(ctx context.Context, pedidoID uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, softDeletePagoByPedido, pedidoID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const resumenPagos = `-- name: ResumenPagos :many
SELECT metodo_pago, COALESCE(SUM(monto), 0)::numeric(12,2) AS total
FROM pago_activo
WHERE fecha_pago >= $1 AND fecha_pago < $2
GROUP BY metodo_pago
`

type ResumenPagosParams struct {
	Desde time.Time `json:"desde"`
	Hasta time.Time `json:"hasta"`
}

type ResumenPagosRow struct {
	MetodoPago string         `json:"metodo_pago"`
	Total      pgtype.Numeric `json:"total"`
}

func (q *Queries) ResumenPagos(ctx context.Context, arg ResumenPagosParams) ([]ResumenPagosRow, error) {
	rows, err := q.db.Query(ctx, resumenPagos, arg.Desde, arg.Hasta)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ResumenPagosRow{}
	for rows.Next() {
		var i ResumenPagosRow
		if err := rows.Scan(&i.MetodoPago, &i.Total); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listPedidosPagados = `-- name: ListPedidosPagados :many
SELECT pe.id, pe.numero, pa.monto, pa.metodo_pago, pa.fecha_pago
FROM pago_activo pa
JOIN pedido_activo pe ON pe.id = pa.id_pedido
WHERE pa.fecha_pago >= $1 AND pa.fecha_pago < $2
  AND ($3::text IS NULL OR pa.metodo_pago = $3::text)
ORDER BY pa.fecha_pago DESC
`

type ListPedidosPagadosParams struct {
	Desde      time.Time   `json:"desde"`
	Hasta      time.Time   `json:"hasta"`
	MetodoPago pgtype.Text `json:"metodo_pago"`
}

type ListPedidosPagadosRow struct {
	IDPedido   uuid.UUID      `json:"id_pedido"`
	Numero     int64          `json:"numero"`
	Monto      pgtype.Numeric `json:"monto"`
	MetodoPago string         `json:"metodo_pago"`
	FechaPago  time.Time      `json:"fecha_pago"`
}

func (q *Queries) ListPedidosPagados(ctx context.Context, arg ListPedidosPagadosParams) ([]ListPedidosPagadosRow, error) {
	rows, err := q.db.Query(ctx, listPedidosPagados, arg.Desde, arg.Hasta, arg.MetodoPago)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListPedidosPagadosRow{}
	for rows.Next() {
		var i ListPedidosPagadosRow
		if err := rows.Scan(
			&i.IDPedido,
			&i.Numero,
			&i.Monto,
			&i.MetodoPago,
			&i.FechaPago,
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
