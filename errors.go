package facewatch

import (
	"errors"
	"fmt"
)

var (
	ErrIdentityNotFound = errors.New("usuario no encontrado")
	ErrInsufficientData = errors.New("se necesitan al menos 2 muestras para entrenar")
	ErrNoSampleDir      = errors.New("directorio de muestras no encontrado")
)

// AmbiguousDetectionError indica que el registro recibió una imagen
// con cero o más de un rostro.
type AmbiguousDetectionError struct {
	Count int
}

func (e *AmbiguousDetectionError) Error() string {
	return fmt.Sprintf("se encontraron %d rostros, la imagen debe contener exactamente un rostro", e.Count)
}
