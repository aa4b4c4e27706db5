package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const comboColumns = `id, nombre, descripcion, precio, disponibilidad, eliminado, created_at, updated_at`

func scanCombo(row interface{ Scan(...any) error }) (Combo, error) {
	var i Combo
	err := row.Scan(
		&i.ID,
		&i.Nombre,
		&i.Descripcion,
		&i.Precio,
		&i.Disponibilidad,
		&i.Eliminado,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listCombos = `-- name: ListCombos :many
SELECT ` + comboColumns + `
FROM combo_activo
ORDER BY nombre
`

func (q *Queries) ListCombos(ctx context.Context) ([]Combo, error) {
	rows, err := q.db.Query(ctx, listCombos)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Combo{}
	for rows.Next() {
		i, err := scanCombo(rows)
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

const getCombo = `-- name: GetCombo :one
SELECT ` + comboColumns + `
FROM combo_activo
WHERE id = $1
`

func (q *Queries) GetCombo(ctx context.Context, id uuid.UUID) (Combo, error) {
	return scanCombo(q.db.QueryRow(ctx, getCombo, id))
}

const createCombo = `-- name: CreateCombo :one
INSERT INTO combo (nombre, descripcion, precio, disponibilidad)
VALUES ($1, $2, $3, $4)
RETURNING ` + comboColumns

type CreateComboParams struct {
	Nombre         string         `json:"nombre"`
	Descripcion    pgtype.Text    `json:"descripcion"`
	Precio         pgtype.Numeric `json:"precio"`
	Disponibilidad bool           `json:"disponibilidad"`
}

func (q *Queries) CreateCombo(ctx context.Context, arg CreateComboParams) (Combo, error) {
	return scanCombo(q.db.QueryRow(ctx, createCombo,
		arg.Nombre,
		arg.Descripcion,
		arg.Precio,
		arg.Disponibilidad,
	))
}

const updateCombo = `-- name: UpdateCombo :one
UPDATE combo_activo
SET nombre = $2, descripcion = $3, precio = $4, disponibilidad = $5, updated_at = now()
WHERE id = $1
RETURNING ` + comboColumns

type UpdateComboParams struct {
	ID             uuid.UUID      `json:"id"`
	Nombre         string         `json:"nombre"`
	Descripcion    pgtype.Text    `json:"descripcion"`
	Precio         pgtype.Numeric `json:"precio"`
	Disponibilidad bool           `json:"disponibilidad"`
}

func (q *Queries) UpdateCombo(ctx context.Context, arg UpdateComboParams) (Combo, error) {
	return scanCombo(q.db.QueryRow(ctx, updateCombo,
		arg.ID,
		arg.Nombre,
		arg.Descripcion,
		arg.Precio,
		arg.Disponibilidad,
	))
}

const softDeleteCombo = `-- name: SoftDeleteCombo :execrows
UPDATE combo_activo
SET eliminado = true, updated_at = now()
WHERE id = $1
`

func (q *Queries) SoftDeleteCombo(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, softDeleteCombo, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const listDetallesCombo = `-- name: ListDetallesCombo :many
SELECT dc.id, dc.id_combo, dc.id_producto, dc.cantidad, dc.created_at, p.nombre AS producto_nombre
FROM detallecombo dc
JOIN producto_activo p ON p.id = dc.id_producto
WHERE dc.id_combo = $1
ORDER BY dc.created_at
`

type ListDetallesComboRow struct {
	Detallecombo
	ProductoNombre string `json:"producto_nombre"`
}

func (q *Queries) ListDetallesCombo(ctx context.Context, comboID uuid.UUID) ([]ListDetallesComboRow, error) {
	rows, err := q.db.Query(ctx, listDetallesCombo, comboID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []ListDetallesComboRow{}
	for rows.Next() {
		var i ListDetallesComboRow
		if err := rows.Scan(
			&i.ID,
			&i.IDCombo,
			&i.IDProducto,
			&i.Cantidad,
			&i.CreatedAt,
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

const addDetalleCombo = `-- name: AddDetalleCombo :one
INSERT INTO detallecombo (id_combo, id_producto, cantidad)
VALUES ($1, $2, $3)
RETURNING id, id_combo, id_producto, cantidad, created_at
`

type AddDetalleComboParams struct {
	IDCombo    uuid.UUID `json:"id_combo"`
	IDProducto uuid.UUID `json:"id_producto"`
	Cantidad   int32     `json:"cantidad"`
}

func (q *Queries) AddDetalleCombo(ctx context.Context, arg AddDetalleComboParams) (Detallecombo, error) {
	row := q.db.QueryRow(ctx, addDetalleCombo, arg.IDCombo, arg.IDProducto, arg.Cantidad)
	var i Detallecombo
	err := row.Scan(
		&i.ID,
		&i.IDCombo,
		&i.IDProducto,
		&i.Cantidad,
		&i.CreatedAt,
	)
	return i, err
}

const deleteDetalleCombo = `-- name: DeleteDetalleCombo :execrows
DELETE FROM detallecombo
WHERE id_combo = $1 AND id_producto = $2
`

type DeleteDetalleComboParams struct {
	IDCombo    uuid.UUID `json:"id_combo"`
	IDProducto uuid.UUID `json:"id_producto"`
}

func (q *Queries) DeleteDetalleCombo(ctx context.Context, arg DeleteDetalleComboParams) (int64, error) {
	result, err := q.db.Exec(ctx, deleteDetalleCombo, arg.IDCombo, arg.IDProducto)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
