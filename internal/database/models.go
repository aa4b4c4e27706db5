package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type Auditoria struct {
	ID          uuid.UUID   `json:"id"`
	IDUsuario   pgtype.UUID `json:"id_usuario"`
	IDPedido    pgtype.UUID `json:"id_pedido"`
	Accion      string      `json:"accion"`
	Descripcion pgtype.Text `json:"descripcion"`
	FechaHora   time.Time   `json:"fecha_hora"`
	Eliminado   bool        `json:"eliminado"`
}

type Categoria struct {
	ID          uuid.UUID   `json:"id"`
	Nombre      string      `json:"nombre"`
	Descripcion pgtype.Text `json:"descripcion"`
	Eliminado   bool        `json:"eliminado"`
	CreatedAt   time.Time   `json:"created_at"`
}

type Combo struct {
	ID             uuid.UUID      `json:"id"`
	Nombre         string         `json:"nombre"`
	Descripcion    pgtype.Text    `json:"descripcion"`
	Precio         pgtype.Numeric `json:"precio"`
	Disponibilidad bool           `json:"disponibilidad"`
	Eliminado      bool           `json:"eliminado"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

type ConfigEstadoPedido struct {
	ID                       int32     `json:"id"`
	Estado                   string    `json:"estado"`
	TiempoCancelacionMinutos int32     `json:"tiempo_cancelacion_minutos"`
	TiempoEdicionMinutos     int32     `json:"tiempo_edicion_minutos"`
	PuedeCancelar            bool      `json:"puede_cancelar"`
	PuedeEditar              bool      `json:"puede_editar"`
	UpdatedAt                time.Time `json:"updated_at"`
}

type ConfigHorariosAtencion struct {
	ID         int32       `json:"id"`
	Dia        string      `json:"dia"`
	HoraInicio pgtype.Time `json:"hora_inicio"`
	HoraFin    pgtype.Time `json:"hora_fin"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

type Configuracion struct {
	Clave     string    `json:"clave"`
	Valor     string    `json:"valor"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Detallecombo struct {
	ID         uuid.UUID `json:"id"`
	IDCombo    uuid.UUID `json:"id_combo"`
	IDProducto uuid.UUID `json:"id_producto"`
	Cantidad   int32     `json:"cantidad"`
	CreatedAt  time.Time `json:"created_at"`
}

type Detallepedido struct {
	ID             uuid.UUID      `json:"id"`
	IDPedido       uuid.UUID      `json:"id_pedido"`
	IDProducto     uuid.UUID      `json:"id_producto"`
	Cantidad       int32          `json:"cantidad"`
	Comentario     pgtype.Text    `json:"comentario"`
	PrecioUnitario pgtype.Numeric `json:"precio_unitario"`
	Orden          int32          `json:"orden"`
	Eliminado      bool           `json:"eliminado"`
}

type Estadopedido struct {
	ID           int16  `json:"id"`
	NombreEstado string `json:"nombre_estado"`
	ColorCodigo  string `json:"color_codigo"`
	Eliminado    bool   `json:"eliminado"`
}

type Historialestado struct {
	ID                   uuid.UUID   `json:"id"`
	IDPedido             uuid.UUID   `json:"id_pedido"`
	IDEstado             int16       `json:"id_estado"`
	IDUsuarioResponsable pgtype.UUID `json:"id_usuario_responsable"`
	FechaHoraCambio      time.Time   `json:"fecha_hora_cambio"`
	Eliminado            bool        `json:"eliminado"`
}

type Logseguridad struct {
	ID          uuid.UUID   `json:"id"`
	IDUsuario   pgtype.UUID `json:"id_usuario"`
	Evento      string      `json:"evento"`
	Descripcion pgtype.Text `json:"descripcion"`
	Ip          pgtype.Text `json:"ip"`
	FechaEvento time.Time   `json:"fecha_evento"`
	Eliminado   bool        `json:"eliminado"`
}

type Pago struct {
	ID         uuid.UUID      `json:"id"`
	IDPedido   uuid.UUID      `json:"id_pedido"`
	Monto      pgtype.Numeric `json:"monto"`
	MetodoPago string         `json:"metodo_pago"`
	FechaPago  time.Time      `json:"fecha_pago"`
	Eliminado  bool           `json:"eliminado"`
}

type Pedido struct {
	ID                uuid.UUID   `json:"id"`
	Numero            int64       `json:"numero"`
	IDUsuarioMesero   pgtype.UUID `json:"id_usuario_mesero"`
	FechaHoraRegistro time.Time   `json:"fecha_hora_registro"`
	EstadoActual      int16       `json:"estado_actual"`
	Eliminado         bool        `json:"eliminado"`
}

type Prediccion struct {
	ID                    uuid.UUID   `json:"id"`
	IDProducto            uuid.UUID   `json:"id_producto"`
	FechaPredicha         pgtype.Date `json:"fecha_predicha"`
	FechaGenerada         time.Time   `json:"fecha_generada"`
	DemandaPrevista       int32       `json:"demanda_prevista"`
	TipoSugerencia        pgtype.Text `json:"tipo_sugerencia"`
	SugerenciaDescripcion pgtype.Text `json:"sugerencia_descripcion"`
	Aceptado              bool        `json:"aceptado"`
	IDUsuarioAccion       pgtype.UUID `json:"id_usuario_accion"`
	Eliminado             bool        `json:"eliminado"`
}

type Producto struct {
	ID                 uuid.UUID      `json:"id"`
	Nombre             string         `json:"nombre"`
	Descripcion        pgtype.Text    `json:"descripcion"`
	IDCategoria        pgtype.UUID    `json:"id_categoria"`
	Precio             pgtype.Numeric `json:"precio"`
	Disponibilidad     bool           `json:"disponibilidad"`
	CantidadDisponible int32          `json:"cantidad_disponible"`
	Imagen             pgtype.Text    `json:"imagen"`
	Eliminado          bool           `json:"eliminado"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type Rol struct {
	ID          int16       `json:"id"`
	Nombre      string      `json:"nombre"`
	Descripcion pgtype.Text `json:"descripcion"`
	Eliminado   bool        `json:"eliminado"`
}

type Usuario struct {
	ID               uuid.UUID          `json:"id"`
	Nombre           string             `json:"nombre"`
	Email            string             `json:"email"`
	ContrasenaHash   string             `json:"contrasena_hash"`
	Estado           string             `json:"estado"`
	IDRol            int16              `json:"id_rol"`
	Bloqueado        bool               `json:"bloqueado"`
	BloqueadoHasta   pgtype.Timestamptz `json:"bloqueado_hasta"`
	IntentosFallidos int32              `json:"intentos_fallidos"`
	BloqueosHoy      int32              `json:"bloqueos_hoy"`
	Eliminado        bool               `json:"eliminado"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}
