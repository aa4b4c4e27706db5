package database

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

const ventasPagadas = `-- name: VentasPagadas :one
SELECT COALESCE(SUM(d.cantidad * d.precio_unitario), 0)::numeric(12,2) AS total,
       COUNT(DISTINCT pe.id) AS clientes
FROM pedido_activo pe
JOIN detallepedido_activo d ON d.id_pedido = pe.id
WHERE pe.estado_actual = $1 AND pe.fecha_hora_registro >= $2 AND pe.fecha_hora_registro < $3
`

type VentasPagadasParams struct {
	EstadoPagado int16     `json:"estado_pagado"`
	Desde        time.Time `json:"desde"`
	Hasta        time.Time `json:"hasta"`
}

type VentasPagadasRow struct {
	Total    pgtype.Numeric `json:"total"`
	Clientes int64          `json:"clientes"`
}

func (q *Queries) VentasPagadas(ctx context.Context, arg VentasPagadasParams) (VentasPagadasRow, error) {
	row := q.db.QueryRow(ctx, ventasPagadas, arg.EstadoPagado, arg.Desde, arg.Hasta)
	var i VentasPagadasRow
	err := row.Scan(&i.Total, &i.Clientes)
	return i, err
}

const ventasPorDia = `-- name: VentasPorDia :many
SELECT (fecha_hora_registro AT TIME ZONE $4::text)::date AS dia, COUNT(*) AS ventas
FROM pedido_activo
WHERE estado_actual = $1 AND fecha_hora_registro >= $2 AND fecha_hora_registro < $3
GROUP BY dia
ORDER BY dia
`

type VentasPorDiaParams struct {
	EstadoPagado int16     `json:"estado_pagado"`
	Desde        time.Time `json:"desde"`
	Hasta        time.Time `json:"hasta"`
	Zona         string    `json:"zona"`
}

type VentasPorDiaRow struct {
	Dia    pgtype.Date `json:"dia"`
	Ventas int64       `json:"ventas"`
}

func (q *Queries) VentasPorDia(ctx context.Context, arg VentasPorDiaParams) ([]VentasPorDiaRow, error) {
	rows, err := q.db.Query(ctx, ventasPorDia, arg.EstadoPagado, arg.Desde, arg.Hasta, arg.Zona)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []VentasPorDiaRow{}
	for rows.Next() {
		var i VentasPorDiaRow
		if err := rows.Scan(&i.Dia, &i.Ventas); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const topProductos = `-- name: TopProductos :many
SELECT pr.nombre, SUM(d.cantidad)::bigint AS total_vendido
FROM detallepedido_activo d
JOIN pedido_activo pe ON pe.id = d.id_pedido
JOIN producto_activo pr ON pr.id = d.id_producto
WHERE pe.estado_actual = $1 AND pe.fecha_hora_registro >= $2 AND pe.fecha_hora_registro < $3
GROUP BY pr.id, pr.nombre
ORDER BY total_vendido DESC
LIMIT $4
`

type TopProductosParams struct {
	EstadoPagado int16     `json:"estado_pagado"`
	Desde        time.Time `json:"desde"`
	Hasta        time.Time `json:"hasta"`
	Limit        int32     `json:"limit"`
}

type TopProductosRow struct {
	Nombre       string `json:"nombre"`
	TotalVendido int64  `json:"total_vendido"`
}

func (q *Queries) TopProductos(ctx context.Context, arg TopProductosParams) ([]TopProductosRow, error) {
	rows, err := q.db.Query(ctx, topProductos, arg.EstadoPagado, arg.Desde, arg.Hasta, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []TopProductosRow{}
	for rows.Next() {
		var i TopProductosRow
		if err := rows.Scan(&i.Nombre, &i.TotalVendido); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listLineasExport = `-- name: ListLineasExport :many
SELECT pe.numero, pe.fecha_hora_registro, u.nombre AS mesero_nombre, e.nombre_estado,
       pr.nombre AS producto_nombre, d.cantidad, d.comentario, d.precio_unitario
FROM pedido_activo pe
JOIN detallepedido_activo d ON d.id_pedido = pe.id
JOIN producto pr ON pr.id = d.id_producto
JOIN estadopedido e ON e.id = pe.estado_actual
LEFT JOIN usuario u ON u.id = pe.id_usuario_mesero
WHERE ($1::smallint IS NULL OR pe.estado_actual = $1::smallint)
  AND ($2::bigint IS NULL OR pe.numero = $2::bigint)
  AND ($3::timestamptz IS NULL OR pe.fecha_hora_registro >= $3::timestamptz)
  AND ($4::timestamptz IS NULL OR pe.fecha_hora_registro <= $4::timestamptz)
  AND ($5::text IS NULL OR u.nombre ILIKE '%' || $5::text || '%')
ORDER BY pe.fecha_hora_registro DESC, pe.numero, d.orden
`

type ListLineasExportParams struct {
	EstadoActual pgtype.Int2        `json:"estado_actual"`
	Numero       pgtype.Int8        `json:"numero"`
	Desde        pgtype.Timestamptz `json:"desde"`
	Hasta        pgtype.Timestamptz `json:"hasta"`
	Mesero       pgtype.Text        `json:"mesero"`
}

type ListLineasExportRow struct {
	Numero            int64          `json:"numero"`
	FechaHoraRegistro time.Time      `json:"fecha_hora_registro"`
	MeseroNombre      pgtype.Text    `json:"mesero_nombre"`
	NombreEstado      string         `json:"nombre_estado"`
	ProductoNombre    string         `json:"producto_nombre"`
	Cantidad          int32          `json:"cantidad"`
	Comentario        pgtype.Text    `json:"comentario"`
	PrecioUnitario    pgtype.Numeric `json:"precio_unitario"`
}

func (q *Queries) ListLineasExport(ctx context.Context, arg ListLineasExportParams) ([]ListLineasExportRow, error) {
	rows, err := q.db.Query(ctx, listLineasExport,
		arg.EstadoActual,
		arg.Numero,
		arg.Desde,
		arg.Hasta,
		arg.Mesero,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListLineasExportRow{}
	for rows.Next() {
		var i ListLineasExportRow
		if err := rows.Scan(
			&i.Numero,
			&i.FechaHoraRegistro,
			&i.MeseroNombre,
			&i.NombreEstado,
			&i.ProductoNombre,
			&i.Cantidad,
			&i.Comentario,
			&i.PrecioUnitario,
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
