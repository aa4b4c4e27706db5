package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listConfigEstadoPedidos = `-- name: ListConfigEstadoPedidos :many
SELECT id, estado, tiempo_cancelacion_minutos, tiempo_edicion_minutos, puede_cancelar, puede_editar, updated_at
FROM config_estado_pedidos
ORDER BY id
`

func (q *Queries) ListConfigEstadoPedidos(ctx context.Context) ([]ConfigEstadoPedido, error) {
	rows, err := q.db.Query(ctx, listConfigEstadoPedidos)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ConfigEstadoPedido{}
	for rows.Next() {
		var i ConfigEstadoPedido
		if err := rows.Scan(
			&i.ID,
			&i.Estado,
			&i.TiempoCancelacionMinutos,
			&i.TiempoEdicionMinutos,
			&i.PuedeCancelar,
			&i.PuedeEditar,
			&i.UpdatedAt,
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

const upsertConfigEstadoPedido = `-- name: UpsertConfigEstadoPedido :exec
INSERT INTO config_estado_pedidos (estado, tiempo_cancelacion_minutos, tiempo_edicion_minutos, puede_cancelar, puede_editar)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (estado) DO UPDATE
SET tiempo_cancelacion_minutos = EXCLUDED.tiempo_cancelacion_minutos,
    tiempo_edicion_minutos = EXCLUDED.tiempo_edicion_minutos,
    puede_cancelar = EXCLUDED.puede_cancelar,
    puede_editar = EXCLUDED.puede_editar,
    updated_at = now()
`

type UpsertConfigEstadoPedidoParams struct {
	Estado                   string `json:"estado"`
	TiempoCancelacionMinutos int32  `json:"tiempo_cancelacion_minutos"`
	TiempoEdicionMinutos     int32  `json:"tiempo_edicion_minutos"`
	PuedeCancelar            bool   `json:"puede_cancelar"`
	PuedeEditar              bool   `json:"puede_editar"`
}

func (q *Queries) UpsertConfigEstadoPedido(ctx context.Context, arg UpsertConfigEstadoPedidoParams) error {
	_, err := q.db.Exec(ctx, upsertConfigEstadoPedido,
		arg.Estado,
		arg.TiempoCancelacionMinutos,
		arg.TiempoEdicionMinutos,
		arg.PuedeCancelar,
		arg.PuedeEditar,
	)
	return err
}

const listConfiguraciones = `-- name: ListConfiguraciones :many
SELECT clave, valor, updated_at
FROM configuraciones
ORDER BY clave
`

func (q *Queries) ListConfiguraciones(ctx context.Context) ([]Configuracion, error) {
	rows, err := q.db.Query(ctx, listConfiguraciones)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Configuracion{}
	for rows.Next() {
		var i Configuracion
		if err := rows.Scan(&i.Clave, &i.Valor, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertConfiguracion = `-- name: UpsertConfiguracion :exec
INSERT INTO configuraciones (clave, valor)
VALUES ($1, $2)
ON CONFLICT (clave) DO UPDATE
SET valor = EXCLUDED.valor, updated_at = now()
`

type UpsertConfiguracionParams struct {
	Clave string `json:"clave"`
	Valor string `json:"valor"`
}

func (q *Queries) UpsertConfiguracion(ctx context.Context, arg UpsertConfiguracionParams) error {
	_, err := q.db.Exec(ctx, upsertConfiguracion, arg.Clave, arg.Valor)
	return err
}

const listHorarios = `-- name: ListHorarios :many
SELECT id, dia, hora_inicio, hora_fin, updated_at
FROM config_horarios_atencion
ORDER BY id
`

func (q *Queries) ListHorarios(ctx context.Context) ([]ConfigHorariosAtencion, error) {
	rows, err := q.db.Query(ctx, listHorarios)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ConfigHorariosAtencion{}
	for rows.Next() {
		var i ConfigHorariosAtencion
		if err := rows.Scan(
			&i.ID,
			&i.Dia,
			&i.HoraInicio,
			&i.HoraFin,
			&i.UpdatedAt,
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

const upsertHorario = `-- name: UpsertHorario :exec
INSERT INTO config_horarios_atencion (dia, hora_inicio, hora_fin)
VALUES ($1, $2, $3)
ON CONFLICT (dia) DO UPDATE
SET hora_inicio = EXCLUDED.hora_inicio, hora_fin = EXCLUDED.hora_fin, updated_at = now()
`

type UpsertHorarioParams struct {
	Dia        string      `json:"dia"`
	HoraInicio pgtype.Time `json:"hora_inicio"`
	HoraFin    pgtype.Time `json:"hora_fin"`
}

func (q *Queries) UpsertHorario(ctx context.Context, arg UpsertHorarioParams) error {
	_, err := q.db.Exec(ctx, upsertHorario, arg.Dia, arg.HoraInicio, arg.HoraFin)
	return err
}
