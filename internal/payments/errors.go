package payments

import (
	pkgerrors "github.com/angelmondragon/comercio-backend/pkg/errors"
)

// User-facing messages. Clients match on these strings, keep them stable.
const (
	msgNotFound              = "Pago no encontrado"
	msgRefundedImmutable     = "No se puede cambiar el estado de un pago reembolsado"
	msgCancelledImmutable    = "No se puede cambiar el estado de un pago cancelado"
	msgCompletedTransition   = "Un pago completado solo puede ser reembolsado o cancelado"
	msgRefundRequiresDone    = "Solo se pueden reembolsar pagos completados"
	msgRefundNotPositive     = "El monto del reembolso debe ser mayor a cero"
	msgRefundExceedsAmount   = "El monto del reembolso no puede exceder el monto del pago"
	msgDeleteRequiresPending = "Solo se pueden eliminar pagos pendientes"
	msgInvalidStatus         = "Estado de pago inválido"
	msgInvalidMethod         = "Método de pago inválido"
	msgAmountNotPositive     = "El monto del pago debe ser mayor a cero"
)

func errNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, msgNotFound)
}
