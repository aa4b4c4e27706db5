package enum

// ── Group A: State machines (seeded ids in estadopedido) ──

const (
	EstadoPendiente       int16 = 1
	EstadoEnPreparacion   int16 = 2
	EstadoListoParaServir int16 = 3
	EstadoEntregado       int16 = 4
	EstadoCancelado       int16 = 5
	EstadoPagado          int16 = 6
	EstadoModificado      int16 = 7
	EstadoRechazado       int16 = 8
)

var estadoNombres = map[int16]string{
	EstadoPendiente:       "Pendiente",
	EstadoEnPreparacion:   "En preparación",
	EstadoListoParaServir: "Listo para servir",
	EstadoEntregado:       "Entregado",
	EstadoCancelado:       "Cancelado",
	EstadoPagado:          "Pagado",
	EstadoModificado:      "Modificado",
	EstadoRechazado:       "Rechazado",
}

// Estados lists every order state id in seed order.
var Estados = []int16{
	EstadoPendiente,
	EstadoEnPreparacion,
	EstadoListoParaServir,
	EstadoEntregado,
	EstadoCancelado,
	EstadoPagado,
	EstadoModificado,
	EstadoRechazado,
}

// EstadoNombre returns the display name of a state id, or "" if unknown.
func EstadoNombre(id int16) string {
	return estadoNombres[id]
}

// EstadoByNombre returns the id of a state display name.
func EstadoByNombre(nombre string) (int16, bool) {
	for id, n := range estadoNombres {
		if n == nombre {
			return id, true
		}
	}
	return 0, false
}

// ── Group B: Roles (seeded ids in rol) ──

const (
	RolAdministrador int16 = 1
	RolMesero        int16 = 2
	RolCocina        int16 = 3
	RolCajero        int16 = 4
)

const (
	RoleAdministrador = "Administrador"
	RoleMesero        = "Mesero"
	RoleCocina        = "Cocina"
	RoleCajero        = "Cajero"
)

var rolNombres = map[int16]string{
	RolAdministrador: RoleAdministrador,
	RolMesero:        RoleMesero,
	RolCocina:        RoleCocina,
	RolCajero:        RoleCajero,
}

// RolNombre returns the role name of a role id, or "" if unknown.
func RolNombre(id int16) string {
	return rolNombres[id]
}

// ── Group C: Configurable labels (CHECK constrained where noted) ──

// Payment methods (CHECK constrained in pago).
const (
	MetodoEfectivo = "Efectivo"
	MetodoTarjeta  = "Tarjeta"
	MetodoQR       = "QR"
)

// MetodosPago lists accepted payment methods in display order.
var MetodosPago = []string{MetodoEfectivo, MetodoTarjeta, MetodoQR}

// IsMetodoPago reports whether m is an accepted payment method.
func IsMetodoPago(m string) bool {
	for _, v := range MetodosPago {
		if v == m {
			return true
		}
	}
	return false
}

const (
	UsuarioActivo   = "Activo"
	UsuarioInactivo = "Inactivo"
)

// Audit actions written to auditoria.accion.
const (
	AccionCrearPedido         = "Crear pedido"
	AccionEditarPedido        = "Editar pedido"
	AccionCancelarPedido      = "Cancelar pedido"
	AccionRehacerPedido       = "Rehacer pedido"
	AccionRestaurarRechazado  = "Restaurar rechazado"
	AccionRechazarPedido      = "Rechazar pedido"
	AccionPagoPedido          = "Pago de pedido"
	AccionRehacerPago         = "Rehacer pago"
	AccionCambiarEstado       = "Cambiar estado"
	AccionCambiarEstadoPedido = "Cambiar estado pedido"
	AccionCrearUsuario        = "Crear usuario"
	AccionActualizarUsuario   = "Actualizar usuario"
	AccionEliminarUsuario     = "Eliminar usuario"
	AccionRestaurarUsuario    = "Restaurar usuario"
	AccionDesbloquearUsuario  = "Desbloquear usuario"
	AccionCrearProducto       = "Crear producto"
	AccionActualizarProducto  = "Actualizar producto"
	AccionEliminarProducto    = "Eliminar producto"
	AccionRestaurarProducto   = "Restaurar producto"
	AccionDisponibilidadProd  = "Cambiar disponibilidad de producto"
	AccionActualizarCantidad  = "Actualizar cantidad de producto"
	AccionCrearCategoria      = "Crear categoría"
	AccionActualizarCategoria = "Actualizar categoría"
	AccionEliminarCategoria   = "Eliminar categoría"
	AccionActualizarConfig    = "Actualizar configuración"
	AccionActualizarHorario   = "Actualizar horario de atención"
	AccionGenerarPrediccion   = "Generar predicción"
	AccionAceptarSugerencia   = "Aceptar sugerencia"
	AccionRechazarSugerencia  = "Rechazar sugerencia"
)

// Security events written to logseguridad.evento.
const (
	EventoLoginFallido = "Login fallido"
	EventoLoginExitoso = "Login exitoso"
	EventoLogout       = "Logout"
)

// Suggestion types written by the forecast job to prediccion.tipo_sugerencia.
const (
	SugerenciaStockCritico     = "stock_critico"
	SugerenciaIncrementarStock = "incrementar_stock"
	SugerenciaMantenerStock    = "mantener_stock"
	SugerenciaReducirStock     = "reducir_stock"
)

// TiposSugerencia lists every suggestion type.
var TiposSugerencia = []string{
	SugerenciaStockCritico,
	SugerenciaIncrementarStock,
	SugerenciaMantenerStock,
	SugerenciaReducirStock,
}

// Spanish weekday names used by config_horarios_atencion.dia, indexed by time.Weekday.
var DiasSemana = [7]string{"Domingo", "Lunes", "Martes", "Miércoles", "Jueves", "Viernes", "Sábado"}
