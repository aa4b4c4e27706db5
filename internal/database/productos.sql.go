package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const productoColumns = `id, nombre, descripcion, id_categoria, precio, disponibilidad,
       cantidad_disponible, imagen, eliminado, created_at, updated_at`

func scanProducto(row interface{ Scan(...any) error }) (Producto, error) {
	var i Producto
	err := row.Scan(
		&i.ID,
		&i.Nombre,
		&i.Descripcion,
		&i.IDCategoria,
		&i.Precio,
		&i.Disponibilidad,
		&i.CantidadDisponible,
		&i.Imagen,
		&i.Eliminado,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) queryProductos(ctx context.Context, sql string, args ...interface{}) ([]Producto, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Producto{}
	for rows.Next() {
		i, err := scanProducto(rows)
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

const getProducto = `-- name: GetProducto :one
SELECT ` + productoColumns + `
FROM producto_activo
WHERE id = $1
`

func (q *Queries) GetProducto(ctx context.Context, id uuid.UUID) (Producto, error) {
	return scanProducto(q.db.QueryRow(ctx, getProducto, id))
}

const listProductos = `-- name: ListProductos :many
SELECT ` + productoColumns + `
FROM producto_activo
ORDER BY nombre
`

func (q *Queries) ListProductos(ctx context.Context) ([]Producto, error) {
	return q.queryProductos(ctx, listProductos)
}

const listProductosDisponibles = `-- name: ListProductosDisponibles :many
SELECT ` + productoColumns + `
FROM producto_activo
WHERE disponibilidad
ORDER BY nombre
`

func (q *Queries) ListProductosDisponibles(ctx context.Context) ([]Producto, error) {
	return q.queryProductos(ctx, listProductosDisponibles)
}

const listProductosEliminados = `-- name: ListProductosEliminados :many
SELECT ` + productoColumns + `
FROM producto
WHERE eliminado
ORDER BY nombre
`

func (q *Queries) ListProductosEliminados(ctx context.Context) ([]Producto, error) {
	return q.queryProductos(ctx, listProductosEliminados)
}

const createProducto = `-- name: CreateProducto :one
INSERT INTO producto (nombre, descripcion, id_categoria, precio, disponibilidad, cantidad_disponible, imagen)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + productoColumns

type CreateProductoParams struct {
	Nombre             string         `json:"nombre"`
	Descripcion        pgtype.Text    `json:"descripcion"`
	IDCategoria        pgtype.UUID    `json:"id_categoria"`
	Precio             pgtype.Numeric `json:"precio"`
	Disponibilidad     bool           `json:"disponibilidad"`
	CantidadDisponible int32          `json:"cantidad_disponible"`
	Imagen             pgtype.Text    `json:"imagen"`
}

func (q *Queries) CreateProducto(ctx context.Context, arg CreateProductoParams) (Producto, error) {
	return scanProducto(q.db.QueryRow(ctx, createProducto,
		arg.Nombre,
		arg.Descripcion,
		arg.IDCategoria,
		arg.Precio,
		arg.Disponibilidad,
		arg.CantidadDisponible,
		arg.Imagen,
	))
}

const updateProducto = `-- name: UpdateProducto :one
UPDATE producto_activo
SET nombre = $2, descripcion = $3, id_categoria = $4, precio = $5, imagen = $6, updated_at = now()
WHERE id = $1
RETURNING ` + productoColumns

type UpdateProductoParams struct {
	ID          uuid.UUID      `json:"id"`
	Nombre      string         `json:"nombre"`
	Descripcion pgtype.Text    `json:"descripcion"`
	IDCategoria pgtype.UUID    `json:"id_categoria"`
	Precio      pgtype.Numeric `json:"precio"`
	Imagen      pgtype.Text    `json:"imagen"`
}

func (q *Queries) UpdateProducto(ctx context.Context, arg UpdateProductoParams) (Producto, error) {
	return scanProducto(q.db.QueryRow(ctx, updateProducto,
		arg.ID,
		arg.Nombre,
		arg.Descripcion,
		arg.IDCategoria,
		arg.Precio,
		arg.Imagen,
	))
}

const setProductoDisponibilidad = `-- name: SetProductoDisponibilidad :one
UPDATE producto_activo
SET disponibilidad = $2, updated_at = now()
WHERE id = $1
RETURNING ` + productoColumns

type SetProductoDisponibilidadParams struct {
	ID             uuid.UUID `json:"id"`
	Disponibilidad bool      `json:"disponibilidad"`
}

func (q *Queries) SetProductoDisponibilidad(ctx context.Context, arg SetProductoDisponibilidadParams) (Producto, error) {
	return scanProducto(q.db.QueryRow(ctx, setProductoDisponibilidad, arg.ID, arg.Disponibilidad))
}

const setProductoCantidad = `-- name: SetProductoCantidad :one
UPDATE producto_activo
SET cantidad_disponible = $2, updated_at = now()
WHERE id = $1
RETURNING ` + productoColumns

type SetProductoCantidadParams struct {
	ID                 uuid.UUID `json:"id"`
	CantidadDisponible int32     `json:"cantidad_disponible"`
}

func (q *Queries) SetProductoCantidad(ctx context.Context, arg SetProductoCantidadParams) (Producto, error) {
	return scanProducto(q.db.QueryRow(ctx, setProductoCantidad, arg.ID, arg.CantidadDisponible))
}

const softDeleteProducto = `-- name: SoftDeleteProducto :execrows
UPDATE producto_activo
SET eliminado = true, updated_at = now()
WHERE id = $1
`

func (q *Queries) SoftDeleteProducto(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, softDeleteProducto, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const restoreProducto = `-- name: RestoreProducto :one
UPDATE producto
SET eliminado = false, updated_at = now()
WHERE id = $1 AND eliminado
RETURNING ` + productoColumns

func (q *Queries) RestoreProducto(ctx context.Context, id uuid.UUID) (Producto, error) {
	return scanProducto(q.db.QueryRow(ctx, restoreProducto, id))
}

const decrementStock = `-- name: DecrementStock :execrows
UPDATE producto_activo
SET cantidad_disponible = cantidad_disponible - $2, updated_at = now()
WHERE id = $1 AND cantidad_disponible >= $2
`

type DecrementStockParams struct {
	ID       uuid.UUID `json:"id"`
	Cantidad int32     `json:"cantidad"`
}

// DecrementStock reports zero rows when the product lacks enough stock.
func (q *Queries) DecrementStock(ctx context.Context, arg DecrementStockParams) (int64, error) {
	result, err := q.db.Exec(ctx, decrementStock, arg.ID, arg.Cantidad)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const restoreStock = `-- name: RestoreStock :exec
UPDATE producto
SET cantidad_disponible = cantidad_disponible + $2, updated_at = now()
WHERE id = $1
`

type RestoreStockParams struct {
	ID       uuid.UUID `json:"id"`
	Cantidad int32     `json:"cantidad"`
}

func (q *Queries) RestoreStock(ctx context.Context, arg RestoreStockParams) error {
	_, err := q.db.Exec(ctx, restoreStock, arg.ID, arg.Cantidad)
	return err
}
