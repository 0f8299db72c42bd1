package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias de infraestructura).
var (
	ErrNotFound                 = errors.New("recurso no encontrado")
	ErrInvalidInput             = errors.New("entrada inválida")
	ErrDuplicate                = errors.New("recurso duplicado")
	ErrUnauthorized             = errors.New("no autorizado")
	ErrForbidden                = errors.New("acceso denegado")
	ErrConflict                 = errors.New("conflicto con el estado actual")
	ErrInsufficientStock        = errors.New("stock insuficiente")
	ErrConcurrentStockChange    = errors.New("el stock cambió desde la última consulta")
	ErrConversionProductMissing = errors.New("producto de conversión inexistente")
	ErrStorageUnavailable       = errors.New("almacenamiento no disponible")
	ErrTransactionAborted       = errors.New("transacción abortada")
	ErrAuditWriteFailure        = errors.New("no se pudo registrar la auditoría")
	ErrLineArithmetic           = errors.New("aritmética de línea inconsistente")
	ErrDuplicateRequest         = errors.New("solicitud duplicada")
)

// ValidationError entrada malformada; nombra el campo o producto culpable.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError construye un ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validación: " + e.Message
	}
	return fmt.Sprintf("validación: %s: %s", e.Field, e.Message)
}

// Is permite errors.Is(err, ErrInvalidInput).
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// ConcurrentStockChangeError el saldo re-resuelto al confirmar difiere del que vio el usuario
// de forma incompatible con su intención.
type ConcurrentStockChangeError struct {
	ProductID   string
	ProductCode string
	WarehouseID string
	Known       decimal.Decimal
	Observed    decimal.Decimal
}

func (e *ConcurrentStockChangeError) Error() string {
	name := e.ProductCode
	if name == "" {
		name = e.ProductID
	}
	return fmt.Sprintf("el stock de %s cambió: se conocía %s y ahora es %s; vuelva a consultar y confirme",
		name, e.Known.String(), e.Observed.String())
}

// Is permite errors.Is(err, ErrConcurrentStockChange).
func (e *ConcurrentStockChangeError) Is(target error) bool { return target == ErrConcurrentStockChange }

// ConversionProductMissingError la conversión referencia un producto producido inexistente.
type ConversionProductMissingError struct {
	SourceProductID   string
	ProducedProductID string
	Detail            string
}

func (e *ConversionProductMissingError) Error() string {
	switch {
	case e.ProducedProductID != "":
		return fmt.Sprintf("producto producido %s no existe (origen %s)", e.ProducedProductID, e.SourceProductID)
	case e.Detail != "":
		return fmt.Sprintf("no hay producto producido para el origen %s: %s", e.SourceProductID, e.Detail)
	default:
		return fmt.Sprintf("no hay producto producido configurado para el origen %s", e.SourceProductID)
	}
}

// Is permite errors.Is(err, ErrConversionProductMissing).
func (e *ConversionProductMissingError) Is(target error) bool {
	return target == ErrConversionProductMissing
}

// AuditWriteFailureError fallo al anexar una entrada de auditoría. No revierte la mutación.
type AuditWriteFailureError struct {
	ResourceType string
	ResourceID   string
	Err          error
}

func (e *AuditWriteFailureError) Error() string {
	return fmt.Sprintf("auditoría %s/%s: %v", e.ResourceType, e.ResourceID, e.Err)
}

func (e *AuditWriteFailureError) Unwrap() error { return e.Err }

// Is permite errors.Is(err, ErrAuditWriteFailure).
func (e *AuditWriteFailureError) Is(target error) bool { return target == ErrAuditWriteFailure }
