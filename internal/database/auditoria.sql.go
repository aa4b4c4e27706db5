package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createAuditoria = `-- name: CreateAuditoria :one
INSERT INTO auditoria (id_usuario, id_pedido, accion, descripcion)
VALUES ($1, $2, $3, $4)
RETURNING id, id_usuario, id_pedido, accion, descripcion, fecha_hora, eliminado
`

type CreateAuditoriaParams struct {
	IDUsuario   pgtype.UUID `json:"id_usuario"`
	IDPedido    pgtype.UUID `json:"id_pedido"`
	Accion      string      `json:"accion"`
	Descripcion pgtype.Text `json:"descripcion"`
}

func (q *Queries) CreateAuditoria(ctx context.Context, arg CreateAuditoriaParams) (Auditoria, error) {
	row := q.db.QueryRow(ctx, createAuditoria,
		arg.IDUsuario,
		arg.IDPedido,
		arg.Accion,
		arg.Descripcion,
	)
	var i Auditoria
	err := row.Scan(
		&i.ID,
		&i.IDUsuario,
		&i.IDPedido,
		&i.Accion,
		&i.Descripcion,
		&i.FechaHora,
		&i.Eliminado,
	)
	return i, err
}

const getUltimaEdicionPedido = `-- name: GetUltimaEdicionPedido :one
SELECT id, id_usuario, id_pedido, accion, descripcion, fecha_hora, eliminado
FROM auditoria_activo
WHERE id_pedido = $1 AND accion = 'Editar pedido'
ORDER BY fecha_hora DESC
LIMIT 1
`

func (q *Queries) GetUltimaEdicionPedido(ctx context.Context, pedidoID pgtype.UUID) (Auditoria, error) {
	row := q.db.QueryRow(ctx, getUltimaEdicionPedido, pedidoID)
	var i Auditoria
	err := row.Scan(
		&i.ID,
		&i.IDUsuario,
		&i.IDPedido,
		&i.Accion,
		&i.Descripcion,
		&i.FechaHora,
		&i.Eliminado,
	)
	return i, err
}

const listAuditoria = `-- name: ListAuditoria :many
SELECT a.id, a.id_usuario, a.id_pedido, a.accion, a.descripcion, a.fecha_hora,
       u.nombre AS usuario_nombre
FROM auditoria_activo a
LEFT JOIN usuario u ON u.id = a.id_usuario
ORDER BY a.fecha_hora DESC
LIMIT $1 OFFSET $2
`

type ListAuditoriaParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

type ListAuditoriaRow struct {
	ID            uuid.UUID   `json:"id"`
	IDUsuario     pgtype.UUID `json:"id_usuario"`
	IDPedido      pgtype.UUID `json:"id_pedido"`
	Accion        string      `json:"accion"`
	Descripcion   pgtype.Text `json:"descripcion"`
	FechaHora     time.Time   `json:"fecha_hora"`
	UsuarioNombre pgtype.Text `json:"usuario_nombre"`
}

func (q *Queries) ListAuditoria(ctx context.Context, arg ListAuditoriaParams) ([]ListAuditoriaRow, error) {
	rows, err := q.db.Query(ctx, listAuditoria, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListAuditoriaRow{}
	for rows.Next() {
		var i ListAuditoriaRow
		if err := rows.Scan(
			&i.ID,
			&i.IDUsuario,
			&i.IDPedido,
			&i.Accion,
			&i.Descripcion,
			&i.FechaHora,
			&i.UsuarioNombre,
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

const createHistorialEstado = `-- name: CreateHistorialEstado :exec
INSERT INTO historialestado (id_pedido, id_estado, id_usuario_responsable)
VALUES ($1, $2, $3)
`

type CreateHistorialEstadoParams struct {
	IDPedido             uuid.UUID   `json:"id_pedido"`
	IDEstado             int16       `json:"id_estado"`
	IDUsuarioResponsable pgtype.UUID `json:"id_usuario_responsable"`
}

func (q *Queries) CreateHistorialEstado(ctx context.Context, arg CreateHistorialEstadoParams) error {
	_, err := q.db.Exec(ctx, createHistorialEstado, arg.IDPedido, arg.IDEstado, arg.IDUsuarioResponsable)
	return err
}

const listHistorialByPedido = `-- name: ListHistorialByPedido :many
SELECT h.id, h.id_pedido, h.id_estado, h.id_usuario_responsable, h.fecha_hora_cambio, h.eliminado
FROM historialestado_activo h
WHERE h.id_pedido = $1
ORDER BY h.fecha_hora_cambio
`

func (q *Queries) ListHistorialByPedido(ctx context.Context, pedidoID uuid.UUID) ([]Historialestado, error) {
	rows, err := q.db.Query(ctx, listHistorialByPedido, pedidoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Historialestado{}
	for rows.Next() {
		var i Historialestado
		if err := rows.Scan(
			&i.ID,
			&i.IDPedido,
			&i.IDEstado,
			&i.IDUsuarioResponsable,
			&i.FechaHoraCambio,
			&i.Eliminado,
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

const createLogSeguridad = `-- name: CreateLogSeguridad :exec
INSERT INTO logseguridad (id_usuario, evento, descripcion, ip)
VALUES ($1, $2, $3, $4)
`

type CreateLogSeguridadParams struct {
	IDUsuario   pgtype.UUID `json:"id_usuario"`
	Evento      string      `json:"evento"`
	Descripcion pgtype.Text `json:"descripcion"`
	Ip          pgtype.Text `json:"ip"`
}

func (q *Queries) CreateLogSeguridad(ctx context.Context, arg CreateLogSeguridadParams) error {
	_, err := q.db.Exec(ctx, createLogSeguridad,
		arg.IDUsuario,
		arg.Evento,
		arg.Descripcion,
		arg.Ip,
	)
	return err
}

const listLogSeguridad = `-- name: ListLogSeguridad :many
SELECT l.id, l.id_usuario, l.evento, l.descripcion, l.ip, l.fecha_evento,
       u.nombre AS usuario_nombre
FROM logseguridad_activo l
LEFT JOIN usuario u ON u.id = l.id_usuario
ORDER BY l.fecha_evento DESC
LIMIT $1 OFFSET $2
`

type ListLogSeguridadParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

type ListLogSeguridadRow struct {
	ID            uuid.UUID   `json:"id"`
	IDUsuario     pgtype.UUID `json:"id_usuario"`
	Evento        string      `json:"evento"`
	Descripcion   pgtype.Text `json:"descripcion"`
	Ip            pgtype.Text `json:"ip"`
	FechaEvento   time.Time   `json:"fecha_evento"`
	UsuarioNombre pgtype.Text `json:"usuario_nombre"`
}

func (q *Queries) ListLogSeguridad(ctx context.Context, arg ListLogSeguridadParams) ([]ListLogSeguridadRow, error) {
	rows, err := q.db.Query(ctx, listLogSeguridad, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListLogSeguridadRow{}
	for rows.Next() {
		var i ListLogSeguridadRow
		if err := rows.Scan(
			&i.ID,
			&i.IDUsuario,
			&i.Evento,
			&i.Descripcion,
			&i.Ip,
			&i.FechaEvento,
			&i.UsuarioNombre,
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
