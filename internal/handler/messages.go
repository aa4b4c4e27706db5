package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/typica-pos/api/internal/lockout"
	"github.com/typica-pos/api/internal/service"
)

// Text shown to staff. Error values stay short and in English; the
// front end renders these strings as they are.
const (
	msgInternal           = "Error interno del servidor."
	msgInvalidBody        = "El cuerpo de la solicitud no es válido."
	msgUnexpected         = "Ocurrió un error inesperado. Intente nuevamente."
	msgNotAuthenticated   = "No autenticado."
	msgInvalidCredentials = "Estas credenciales no coinciden con nuestros registros."
	msgLocked             = "Tu cuenta ha sido bloqueada por motivos de seguridad. Contacta con el administrador para restablecer tu acceso."
	msgUserNotFound       = "El usuario no existe."
	msgProductNotFound    = "Producto no encontrado."
	msgCategoryNotFound   = "Categoría no encontrada."
	msgComboNotFound      = "Combo no encontrado."
)

type errorText struct {
	err    error
	status int
	text   string
}

var orderErrors = []errorText{
	{service.ErrEmptyItems, http.StatusBadRequest, "Debe agregar al menos un producto al pedido."},
	{service.ErrInvalidQuantity, http.StatusBadRequest, "La cantidad debe ser al menos 1."},
	{service.ErrInvalidPaymentMethod, http.StatusBadRequest, "Método de pago inválido."},
	{service.ErrInvalidState, http.StatusBadRequest, "Estado inválido."},
	{service.ErrOrderNotFound, http.StatusNotFound, "Pedido no encontrado."},
	{service.ErrProductNotFound, http.StatusNotFound, msgProductNotFound},
	{service.ErrNotOwner, http.StatusForbidden, "Solo puede modificar sus propios pedidos."},
	{service.ErrCannotCancel, http.StatusConflict, "No se puede cancelar un pedido ya pagado o cancelado."},
	{service.ErrCannotRedo, http.StatusConflict, "Solo se pueden rehacer pedidos cancelados."},
	{service.ErrCannotRestore, http.StatusConflict, "Solo se pueden restaurar pedidos rechazados."},
	{service.ErrAlreadyRejected, http.StatusConflict, "El pedido ya fue rechazado."},
	{service.ErrAlreadyPaid, http.StatusConflict, "Este pedido ya ha sido pagado."},
	{service.ErrNotPaid, http.StatusConflict, "El pedido no está marcado como pagado."},
	{service.ErrNotEditable, http.StatusConflict, "El pedido no puede editarse en su estado actual."},
	{service.ErrKitchenTransition, http.StatusConflict, "Cambio de estado no permitido para cocina."},
	{service.ErrPaidOnlyByPayment, http.StatusConflict, "Un pedido solo pasa a Pagado registrando su pago en caja."},
	{service.ErrProductUnavailable, http.StatusUnprocessableEntity, "El producto no está disponible."},
	{service.ErrOutsideHours, http.StatusUnprocessableEntity, "No se pueden realizar pedidos fuera del horario de atención."},
	{service.ErrWindowExpired, http.StatusUnprocessableEntity, "El tiempo permitido para esta acción ha expirado."},
	{service.ErrActionNotAllowed, http.StatusUnprocessableEntity, "La acción no está permitida en el estado actual del pedido."},
}

// Query filter errors of the report and cashier endpoints.
var (
	errBadStartDate = errors.New("invalid fecha_inicio")
	errBadEndDate   = errors.New("invalid fecha_fin")
	errDateOrder    = errors.New("fecha_inicio after fecha_fin")
	errBadEstado    = errors.New("unknown estado")
	errBadNumero    = errors.New("invalid numero")
	errBadTiempo    = errors.New("unknown tiempo")
)

var filterErrors = []errorText{
	{errBadStartDate, http.StatusBadRequest, "fecha_inicio debe tener el formato AAAA-MM-DD."},
	{errBadEndDate, http.StatusBadRequest, "fecha_fin debe tener el formato AAAA-MM-DD."},
	{errDateOrder, http.StatusBadRequest, "fecha_inicio debe ser anterior a fecha_fin."},
	{errBadEstado, http.StatusBadRequest, "Estado inválido."},
	{errBadNumero, http.StatusBadRequest, "Número de pedido inválido."},
	{errBadTiempo, http.StatusBadRequest, "Filtro de tiempo inválido."},
}

func lookupError(table []errorText, err error) (int, string, bool) {
	for _, e := range table {
		if errors.Is(err, e.err) {
			return e.status, e.text, true
		}
	}
	return 0, "", false
}

// writeFilterError answers a bad query filter with 400.
func writeFilterError(w http.ResponseWriter, err error) {
	_, text, ok := lookupError(filterErrors, err)
	if !ok {
		text = "Filtro inválido."
	}
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": text})
}

// orderText is the message shown for a known order error.
func orderText(err error) string {
	_, text, _ := lookupError(orderErrors, err)
	return text
}

func stockText(producto string) string {
	return "Stock insuficiente para el producto " + producto
}

// loginErrorText maps a failed login to its status and message.
func loginErrorText(err error) (int, string) {
	var throttled *service.ThrottledError
	var temporary *lockout.TemporaryLockError
	switch {
	case errors.As(err, &throttled):
		return http.StatusTooManyRequests, fmt.Sprintf(
			"Demasiados intentos de inicio de sesión. Intente de nuevo en %d segundos.", throttled.Seconds())
	case errors.As(err, &temporary):
		return http.StatusLocked, fmt.Sprintf(
			"Demasiados intentos fallidos, tu cuenta ha sido bloqueada temporalmente. Vuelve a intentarlo en %.2f minutos.",
			temporary.Remaining.Minutes())
	case errors.Is(err, lockout.ErrLocked):
		return http.StatusLocked, msgLocked
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	default:
		return http.StatusInternalServerError, msgInternal
	}
}
