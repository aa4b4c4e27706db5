package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const usuarioColumns = `id, nombre, email, contrasena_hash, estado, id_rol, bloqueado, bloqueado_hasta,
       intentos_fallidos, bloqueos_hoy, eliminado, created_at, updated_at`

func scanUsuario(row interface{ Scan(...any) error }) (Usuario, error) {
	var i Usuario
	err := row.Scan(
		&i.ID,
		&i.Nombre,
		&i.Email,
		&i.ContrasenaHash,
		&i.Estado,
		&i.IDRol,
		&i.Bloqueado,
		&i.BloqueadoHasta,
		&i.IntentosFallidos,
		&i.BloqueosHoy,
		&i.Eliminado,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func (q *Queries) queryUsuarios(ctx context.Context, sql string, args ...interface{}) ([]Usuario, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []Usuario{}
	for rows.Next() {
		i, err := scanUsuario(rows)
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

const getUsuarioByEmail = `-- name: GetUsuarioByEmail :one
SELECT ` + usuarioColumns + `
FROM usuario_activo
WHERE lower(email) = lower($1)
`

func (q *Queries) GetUsuarioByEmail(ctx context.Context, email string) (Usuario, error) {
	return scanUsuario(q.db.QueryRow(ctx, getUsuarioByEmail, email))
}

const getUsuarioByID = `-- name: GetUsuarioByID :one
SELECT ` + usuarioColumns + `
FROM usuario_activo
WHERE id = $1
`

func (q *Queries) GetUsuarioByID(ctx context.Context, id uuid.UUID) (Usuario, error) {
	return scanUsuario(q.db.QueryRow(ctx, getUsuarioByID, id))
}

const getUsuarioNombre = `-- name: GetUsuarioNombre :one
SELECT nombre
FROM usuario
WHERE id = $1
`

// GetUsuarioNombre reads the base table so orders of removed staff keep
// showing who took them.
func (q *Queries) GetUsuarioNombre(ctx context.Context, id uuid.UUID) (string, error) {
	row := q.db.QueryRow(ctx, getUsuarioNombre, id)
	var nombre string
	err := row.Scan(&nombre)
	return nombre, err
}

const listUsuarios = `-- name: ListUsuarios :many
SELECT ` + usuarioColumns + `
FROM usuario_activo
ORDER BY nombre
`

func (q *Queries) ListUsuarios(ctx context.Context) ([]Usuario, error) {
	return q.queryUsuarios(ctx, listUsuarios)
}

const listUsuariosEliminados = `-- name: ListUsuariosEliminados :many
SELECT ` + usuarioColumns + `
FROM usuario
WHERE eliminado
ORDER BY nombre
`

func (q *Queries) ListUsuariosEliminados(ctx context.Context) ([]Usuario, error) {
	return q.queryUsuarios(ctx, listUsuariosEliminados)
}

const createUsuario = `-- name: CreateUsuario :one
INSERT INTO usuario (nombre, email, contrasena_hash, id_rol, estado)
VALUES ($1, $2, $3, $4, 'Activo')
RETURNING ` + usuarioColumns

type CreateUsuarioParams struct {
	Nombre         string `json:"nombre"`
	Email          string `json:"email"`
	ContrasenaHash string `json:"contrasena_hash"`
	IDRol          int16  `json:"id_rol"`
}

func (q *Queries) CreateUsuario(ctx context.Context, arg CreateUsuarioParams) (Usuario, error) {
	return scanUsuario(q.db.QueryRow(ctx, createUsuario,
		arg.Nombre,
		arg.Email,
		arg.ContrasenaHash,
		arg.IDRol,
	))
}

const updateUsuario = `-- name: UpdateUsuario :one
UPDATE usuario_activo
SET nombre = $2, email = $3, id_rol = $4, estado = $5, updated_at = now()
WHERE id = $1
RETURNING ` + usuarioColumns

type UpdateUsuarioParams struct {
	ID     uuid.UUID `json:"id"`
	Nombre string    `json:"nombre"`
	Email  string    `json:"email"`
	IDRol  int16     `json:"id_rol"`
	Estado string    `json:"estado"`
}

func (q *Queries) UpdateUsuario(ctx context.Context, arg UpdateUsuarioParams) (Usuario, error) {
	return scanUsuario(q.db.QueryRow(ctx, updateUsuario,
		arg.ID,
		arg.Nombre,
		arg.Email,
		arg.IDRol,
		arg.Estado,
	))
}

const updateUsuarioContrasena = `-- name: UpdateUsuarioContrasena :exec
UPDATE usuario_activo
SET contrasena_hash = $2, updated_at = now()
WHERE id = $1
`

type UpdateUsuarioContrasenaParams struct {
	ID             uuid.UUID `json:"id"`
	ContrasenaHash string    `json:"contrasena_hash"`
}

func (q *Queries) UpdateUsuarioContrasena(ctx context.Context, arg UpdateUsuarioContrasenaParams) error {
	_, err := q.db.Exec(ctx, updateUsuarioContrasena, arg.ID, arg.ContrasenaHash)
	return err
}

const updateLockoutState = `-- name: UpdateLockoutState :exec
UPDATE usuario_activo
SET bloqueado = $2, bloqueado_hasta = $3, intentos_fallidos = $4, bloqueos_hoy = $5, updated_at = now()
WHERE id = $1
`

type UpdateLockoutStateParams struct {
	ID               uuid.UUID          `json:"id"`
	Bloqueado        bool               `json:"bloqueado"`
	BloqueadoHasta   pgtype.Timestamptz `json:"bloqueado_hasta"`
	IntentosFallidos int32              `json:"intentos_fallidos"`
	BloqueosHoy      int32              `json:"bloqueos_hoy"`
}

func (q *Queries) UpdateLockoutState(ctx context.Context, arg UpdateLockoutStateParams) error {
	_, err := q.db.Exec(ctx, updateLockoutState,
		arg.ID,
		arg.Bloqueado,
		arg.BloqueadoHasta,
		arg.IntentosFallidos,
		arg.BloqueosHoy,
	)
	return err
}

const unlockUsuario = `-- name: UnlockUsuario :one
UPDATE usuario_activo
SET bloqueado = false, bloqueado_hasta = NULL, intentos_fallidos = 0, bloqueos_hoy = 0, updated_at = now()
WHERE id = $1
RETURNING ` + usuarioColumns

func (q *Queries) UnlockUsuario(ctx context.Context, id uuid.UUID) (Usuario, error) {
	return scanUsuario(q.db.QueryRow(ctx, unlockUsuario, id))
}

const softDeleteUsuario = `-- name: SoftDeleteUsuario :execrows
UPDATE usuario_activo
SET eliminado = true, updated_at = now()
WHERE id = $1
`

func (q *Queries) SoftDeleteUsuario(ctx context.Context, id uuid.UUID) (int64, error) {
	result, err := q.db.Exec(ctx, softDeleteUsuario, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const restoreUsuario = `-- name: RestoreUsuario :one
UPDATE usuario
SET eliminado = false, updated_at = now()
WHERE id = $1 AND eliminado
RETURNING ` + usuarioColumns

func (q *Queries) RestoreUsuario(ctx context.Context, id uuid.UUID) (Usuario, error) {
	return scanUsuario(q.db.QueryRow(ctx, restoreUsuario, id))
}

const countUsuariosByRol = `-- name: CountUsuariosByRol :one
SELECT count(*)
FROM usuario_activo
WHERE id_rol = $1
`

func (q *Queries) CountUsuariosByRol(ctx context.Context, idRol int16) (int64, error) {
	row := q.db.QueryRow(ctx, countUsuariosByRol, idRol)
	var count int64
	err := row.Scan(&count)
	return count, err
}
