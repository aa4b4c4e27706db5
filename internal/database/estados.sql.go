package database

import "context"

const listEstadosPedido = `-- name: ListEstadosPedido :many
SELECT id, nombre_estado, color_codigo, eliminado
FROM estadopedido_activo
ORDER BY id
`

func (q *Queries) ListEstadosPedido(ctx context.Context) ([]Estadopedido, error) {
	rows, err := q.db.Query(ctx, listEstadosPedido)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Estadopedido{}
	for rows.Next() {
		var i Estadopedido
		if err := rows.Scan(&i.ID, &i.NombreEstado, &i.ColorCodigo, &i.Eliminado); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getEstadoPedido = `-- name: GetEstadoPedido :one
SELECT id, nombre_estado, color_codigo, eliminado
FROM estadopedido_activo
WHERE id = $1
`

func (q *Queries) GetEstadoPedido(ctx context.Context, id int16) (Estadopedido, error) {
	row := q.db.QueryRow(ctx, getEstadoPedido, id)
	var i Estadopedido
	err := row.Scan(&i.ID, &i.NombreEstado, &i.ColorCodigo, &i.Eliminado)
	return i, err
}

const listRoles = `-- name: ListRoles :many
SELECT id, nombre, descripcion, eliminado
FROM rol_activo
ORDER BY id
`

func (q *Queries) ListRoles(ctx context.Context) ([]Rol, error) {
	rows, err := q.db.Query(ctx, listRoles)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Rol{}
	for rows.Next() {
		var i Rol
		if err := rows.Scan(&i.ID, &i.Nombre, &i.Descripcion, &i.Eliminado); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
