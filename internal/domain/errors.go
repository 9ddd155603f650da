package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound         = errors.New("recurso no encontrado")
	ErrUserNotFound     = errors.New("usuario no encontrado")
	ErrInvalidInput     = errors.New("entrada inválida")
	ErrDuplicate        = errors.New("recurso duplicado")
	ErrUnauthorized     = errors.New("no autorizado")
	ErrForbidden        = errors.New("acceso denegado")
	ErrConflict         = errors.New("conflicto de versión con el estado actual")
	ErrInUse            = errors.New("recurso referenciado por otros registros")
	ErrStoreUnavailable = errors.New("almacén de colecciones no disponible")
)
