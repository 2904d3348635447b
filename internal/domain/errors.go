package domain

import "errors"

// Errores de dominio (sin dependencias externas).
// Toda operación del SyncStore devuelve un error comparable con errors.Is contra uno de ellos.
var (
	ErrUnauthenticated    = errors.New("no hay una sesión activa")
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrBackendFailure     = errors.New("fallo del backend de datos")
	ErrValidation         = errors.New("entrada inválida")
	ErrEmailAlreadyExists = errors.New("el email ya está registrado")
	ErrInvalidCredentials = errors.New("credenciales inválidas")
)
