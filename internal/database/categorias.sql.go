package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listCategorias = `-- name: ListCategorias :many
SELECT c.id, c.nombre, c.descripcion, c.eliminado, c.created_at,
       COUNT(p.id)::bigint AS total_productos
FROM categoria_activo c
LEFT JOIN producto_activo p ON p.id_categoria = c.id
GROUP BY c.id, c.nombre, c.descripcion, c.eliminado, c.created_at
ORDER BY c.nombre
`

type ListCategoriasRow struct {
	ID             uuid.UUID   `json:"id"`
	Nombre         string      `json:"nombre"`
	Descripcion    pgtype.Text `json:"descripcion"`
	Eliminado      bool        `json:"eliminado"`
	CreatedAt      time.Time   `json:"created_at"`
	TotalProductos int64       `json:"total_productos"`
}

func (q *Queries) ListCategorias(ctx context.Context) ([]ListCategoriasRow, error) {
	rows, err := q.db.Query(ctx, listCategorias)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListCategoriasRow{}
	for rows.Next() {
		var i ListCategoriasRow
		if err := rows.Scan(
			&i.ID,
			&i.Nombre,
			&i.Descripcion,
			&i.Eliminado,
			&i.CreatedAt,
			&i.TotalProductos,
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

const createCategoria = `-- name: CreateCategoria :one
INSERT INTO categoria (nombre, descripcion)
VALUES ($1, $2)
RETURNING id, nombre, descripcion, eliminado, created_at
`

type CreateCategoriaParams struct {
	Nombre      string      `json:"nombre"`
	Descripcion pgtype.Text `json:"descripcion"`
}

func (q *Queries) CreateCategoria(ctx context.Context, arg CreateCategoriaParams) (Categoria, error) {
	row := q.db.QueryRow(ctx, createCategoria, arg.Nombre, arg.Descripcion)
	var i Categoria
	err := row.Scan(
		&i.ID,
		&i.Nombre,
		&i.Descripcion,
		&i.Eliminado,
		&i.CreatedAt,
	)
	return i, err
}

const updateCategoria = `-- name: UpdateCategoria :one
UPDATE categoria_activo
SET nombre = $2, descripcion = $3
WHERE id = $1
RETURNING id, nombre, descripcion, eliminado, created_at
`

type UpdateCategoriaParams struct {
	ID          uuid.UUID   `json:"id"`
	Nombre      string      `json:"nombre"`
	Descripcion pgtype.Text `json:"descripcion"`
}

func (q *Queries) UpdateCategoria(ctx context.Context, arg UpdateCategoriaParams) (Categoria, error) {
	row := q.db.QueryRow(ctx, updateCategoria, arg.ID, arg.Nombre, arg.Descripcion)
	var i Categoria
	err := row.Scan(
		&i.ID,
		&i.Nombre,
		&i.Descripcion,
		&i.Eliminado,
		&i.CreatedAt,
	)
	return i, err
}

const softDeleteCategoria = `-- name: SoftDeleteCategoria :execrows
UPDATE categoria_activo
SET eliminado = true
WHERE id = $1
`

func (q *Queries) SoftDeleteCategoria(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, softDeleteCategoria, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
