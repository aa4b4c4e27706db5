package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createPedido = `-- name: CreatePedido :one
INSERT INTO pedido (id_usuario_mesero, estado_actual)
VALUES ($1, $2)
RETURNING id, numero, id_usuario_mesero, fecha_hora_registro, estado_actual, eliminado
`

type CreatePedidoParams struct {
	IDUsuarioMesero pgtype.UUID `json:"id_usuario_mesero"`
	EstadoActual    int16       `json:"estado_actual"`
}

func (q *Queries) CreatePedido(ctx context.Context, arg CreatePedidoParams) (Pedido, error) {
	row := q.db.QueryRow(ctx, createPedido, arg.IDUsuarioMesero, arg.EstadoActual)
	var i Pedido
	err := row.Scan(
		&i.ID,
		&i.Numero,
		&i.IDUsuarioMesero,
		&i.FechaHoraRegistro,
		&i.EstadoActual,
		&i.Eliminado,
	)
	return i, err
}

const getPedidoForUpdate = `-- name: GetPedidoForUpdate :one
SELECT id, numero, id_usuario_mesero, fecha_hora_registro, estado_actual, eliminado
FROM pedido_activo
WHERE id = $1
FOR UPDATE
`

func (q *Queries) GetPedidoForUpdate(ctx context.Context, id uuid.UUID) (Pedido, error) {
	row := q.db.QueryRow(ctx, getPedidoForUpdate, id)
	var i Pedido
	err := row.Scan(
		&i.ID,
		&i.Numero,
		&i.IDUsuarioMesero,
		&i.FechaHoraRegistro,
		&i.EstadoActual,
		&i.Eliminado,
	)
	return i, err
}

const updatePedidoEstado = `-- name: UpdatePedidoEstado :one
UPDATE pedido_activo
SET estado_actual = $2
WHERE id = $1
RETURNING id, numero, id_usuario_mesero, fecha_hora_registro, estado_actual, eliminado
`

type UpdatePedidoEstadoParams struct {
	ID           uuid.UUID `json:"id"`
	EstadoActual int16     `json:"estado_actual"`
}

func (q *Queries) UpdatePedidoEstado(ctx context.Context, arg UpdatePedidoEstadoParams) (Pedido, error) {
	row := q.db.QueryRow(ctx, updatePedidoEstado, arg.ID, arg.EstadoActual)
	var i Pedido
	err := row.Scan(
		&i.ID,
		&i.Numero,
		&i.IDUsuarioMesero,
		&i.FechaHoraRegistro,
		&i.EstadoActual,
		&i.Eliminado,
	)
	return i, err
}

const pedidoVistaColumns = `p.id, p.numero, p.id_usuario_mesero, p.fecha_hora_registro, p.estado_actual,
       e.nombre_estado, e.color_codigo, u.nombre AS mesero_nombre`

const getPedidoVista = `-- name: GetPedidoVista :one
SELECT ` + pedidoVistaColumns + `
FROM pedido_activo p
JOIN estadopedido e ON e.id = p.estado_actual
LEFT JOIN usuario u ON u.id = p.id_usuario_mesero
WHERE p.id = $1
`

// PedidoVista is an order joined with its state and waiter name.
type PedidoVista struct {
	ID                uuid.UUID   `json:"id"`
	Numero            int64       `json:"numero"`
	IDUsuarioMesero   pgtype.UUID `json:"id_usuario_mesero"`
	FechaHoraRegistro time.Time   `json:"fecha_hora_registro"`
	EstadoActual      int16       `json:"estado_actual"`
	NombreEstado      string      `json:"nombre_estado"`
	ColorCodigo       string      `json:"color_codigo"`
	MeseroNombre      pgtype.Text `json:"mesero_nombre"`
}

func scanPedidoVista(row interface{ Scan(...any) error }) (PedidoVista, error) {
	var i PedidoVista
	err := row.Scan(
		&i.ID,
		&i.Numero,
		&i.IDUsuarioMesero,
		&i.FechaHoraRegistro,
		&i.EstadoActual,
		&i.NombreEstado,
		&i.ColorCodigo,
		&i.MeseroNombre,
	)
	return i, err
}

func (q *Queries) GetPedidoVista(ctx context.Context, id uuid.UUID) (PedidoVista, error) {
	return scanPedidoVista(q.db.QueryRow(ctx, getPedidoVista, id))
}

const listPedidosVista = `-- name: ListPedidosVista :many
SELECT ` + pedidoVistaColumns + `
FROM pedido_activo p
JOIN estadopedido e ON e.id = p.estado_actual
LEFT JOIN usuario u ON u.id = p.id_usuario_mesero
ORDER BY p.fecha_hora_registro DESC
`

func (q *Queries) ListPedidosVista(ctx context.Context) ([]PedidoVista, error) {
	return q.queryPedidosVista(ctx, listPedidosVista)
}

const listPedidosVistaByMesero = `-- name: ListPedidosVistaByMesero :many
SELECT ` + pedidoVistaColumns + `
FROM pedido_activo p
JOIN estadopedido e ON e.id = p.estado_actual
LEFT JOIN usuario u ON u.id = p.id_usuario_mesero
WHERE p.id_usuario_mesero = $1
ORDER BY p.fecha_hora_registro DESC
`

func (q *Queries) ListPedidosVistaByMesero(ctx context.Context, meseroID uuid.UUID) ([]PedidoVista, error) {
	return q.queryPedidosVista(ctx, listPedidosVistaByMesero, meseroID)
}

const listPedidosVistaByEstadosAsc = `-- name: ListPedidosVistaByEstadosAsc :many
SELECT ` + pedidoVistaColumns + `
FROM pedido_activo p
JOIN estadopedido e ON e.id = p.estado_actual
LEFT JOIN usuario u ON u.id = p.id_usuario_mesero
WHERE p.estado_actual = ANY($1::smallint[])
ORDER BY p.fecha_hora_registro ASC
`

func (q *Queries) ListPedidosVistaByEstadosAsc(ctx context.Context, estados []int16) ([]PedidoVista, error) {
	return q.queryPedidosVista(ctx, listPedidosVistaByEstadosAsc, estados)
}

const listPedidosVistaByEstadosDesc = `-- name: ListPedidosVistaByEstadosDesc :many
SELECT ` + pedidoVistaColumns + `
FROM pedido_activo p
JOIN estadopedido e ON e.id = p.estado_actual
LEFT JOIN usuario u ON u.id = p.id_usuario_mesero
WHERE p.estado_actual = ANY($1::smallint[])
ORDER BY p.fecha_hora_registro DESC
`

func (q *Queries) ListPedidosVistaByEstadosDesc(ctx context.Context, estados []int16) ([]PedidoVista, error) {
	return q.queryPedidosVista(ctx, listPedidosVistaByEstadosDesc, estados)
}

func (q *Queries) queryPedidosVista(ctx context.Context, sql string, args ...interface{}) ([]PedidoVista, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PedidoVista{}
	for rows.Next() {
		i, err := scanPedidoVista(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listFechasPedidos = `-- name: ListFechasPedidos :many
SELECT DISTINCT (fecha_hora_registro AT TIME ZONE $1::text)::date AS fecha
FROM pedido_activo
ORDER BY fecha DESC
`

func (q *Queries) ListFechasPedidos(ctx context.Context, zona string) ([]pgtype.Date, error) {
	rows, err := q.db.Query(ctx, listFechasPedidos, zona)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []pgtype.Date{}
	for rows.Next() {
		var fecha pgtype.Date
		if err := rows.Scan(&fecha); err != nil {
			return nil, err
		}
		items = append(items, fecha)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
