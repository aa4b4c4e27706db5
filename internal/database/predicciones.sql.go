package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const prediccionVistaColumns = `pr.id, pr.id_producto, p.nombre AS producto_nombre, pr.fecha_predicha, pr.fecha_generada,
       pr.demanda_prevista, pr.tipo_sugerencia, pr.sugerencia_descripcion, pr.aceptado`

// PrediccionVista is a prediction joined with its product name.
type PrediccionVista struct {
	ID                    uuid.UUID   `json:"id"`
	IDProducto            uuid.UUID   `json:"id_producto"`
	ProductoNombre        string      `json:"producto_nombre"`
	FechaPredicha         pgtype.Date `json:"fecha_predicha"`
	FechaGenerada         time.Time   `json:"fecha_generada"`
	DemandaPrevista       int32       `json:"demanda_prevista"`
	TipoSugerencia        pgtype.Text `json:"tipo_sugerencia"`
	SugerenciaDescripcion pgtype.Text `json:"sugerencia_descripcion"`
	Aceptado              bool        `json:"aceptado"`
}

func (q *Queries) queryPredicciones(ctx context.Context, sql string, args ...interface{}) ([]PrediccionVista, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PrediccionVista{}
	for rows.Next() {
		var i PrediccionVista
		if err := rows.Scan(
			&i.ID,
			&i.IDProducto,
			&i.ProductoNombre,
			&i.FechaPredicha,
			&i.FechaGenerada,
			&i.DemandaPrevista,
			&i.TipoSugerencia,
			&i.SugerenciaDescripcion,
			&i.Aceptado,
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

const listPredicciones = `-- name: ListPredicciones :many
SELECT ` + prediccionVistaColumns + `
FROM prediccion_activo pr
JOIN producto_activo p ON p.id = pr.id_producto
WHERE ($1::uuid IS NULL OR pr.id_producto = $1::uuid)
  AND pr.fecha_predicha >= $2 AND pr.fecha_predicha <= $3
ORDER BY pr.fecha_predicha, p.nombre
`

type ListPrediccionesParams struct {
	IDProducto pgtype.UUID `json:"id_producto"`
	Desde      pgtype.Date `json:"desde"`
	Hasta      pgtype.Date `json:"hasta"`
}

func (q *Queries) ListPredicciones(ctx context.Context, arg ListPrediccionesParams) ([]PrediccionVista, error) {
	return q.queryPredicciones(ctx, listPredicciones, arg.IDProducto, arg.Desde, arg.Hasta)
}

const listSugerencias = `-- name: ListSugerencias :many
SELECT ` + prediccionVistaColumns + `
FROM prediccion_activo pr
JOIN producto_activo p ON p.id = pr.id_producto
WHERE pr.tipo_sugerencia IS NOT NULL
  AND NOT pr.aceptado
  AND ($1::text IS NULL OR pr.tipo_sugerencia = $1::text)
ORDER BY pr.fecha_generada DESC
`

func (q *Queries) ListSugerencias(ctx context.Context, tipo pgtype.Text) ([]PrediccionVista, error) {
	return q.queryPredicciones(ctx, listSugerencias, tipo)
}

const aceptarPrediccion = `-- name: AceptarPrediccion :execrows
UPDATE prediccion_activo
SET aceptado = true, id_usuario_accion = $2
WHERE id = $1
`

type AccionPrediccionParams struct {
	ID              uuid.UUID   `json:"id"`
	IDUsuarioAccion pgtype.UUID `json:"id_usuario_accion"`
}

func (q *Queries) AceptarPrediccion(ctx context.Context, arg AccionPrediccionParams) (int64, error) {
	result, err := q.db.Exec(ctx, aceptarPrediccion, arg.ID, arg.IDUsuarioAccion)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const rechazarPrediccion = `-- name: RechazarPrediccion :execrows
UPDATE prediccion_activo
SET eliminado = true, id_usuario_accion = $2
WHERE id = $1
`

func (q *Queries) RechazarPrediccion(ctx context.Context, arg AccionPrediccionParams) (int64, error) {
	result, err := q.db.Exec(ctx, rechazarPrediccion, arg.ID, arg.IDUsuarioAccion)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
