package facewatch

import (
	"errors"
	"image"
	"log/slog"
	"sync"

	"gocv.io/x/gocv"
)

// Detector localiza rostros en imágenes en escala de grises usando un
// clasificador haarcascade. Cero detecciones es un resultado válido.
type Detector struct {
	mu  sync.Mutex
	cls gocv.CascadeClassifier
}

func NewDetector(modelPath string) (*Detector, error) {
	if modelPath == "" {
		slog.Error("ruta de modelo vacía")
		return nil, errors.New("modelo requerido")
	}
	cls := gocv.NewCascadeClassifier()
	if !cls.Load(modelPath) {
		slog.Error("no se pudo cargar haarcascade", "path", modelPath)
		return nil, errors.New("carga de haarcascade falló")
	}
	return &Detector{cls: cls}, nil
}

func (d *Detector) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cls.Close()
}

// Detect corre una pasada estricta y, si no encuentra nada, reintenta
// una vez con parámetros relajados.
func (d *Detector) Detect(gray gocv.Mat) []image.Rectangle {
	d.mu.Lock()
	defer d.mu.Unlock()
	rects := d.cls.DetectMultiScaleWithParams(
		gray, 1.1, 5, 0, image.Pt(100, 100), image.Pt(0, 0),
	)
	if len(rects) == 0 {
		rects = d.cls.DetectMultiScaleWithParams(
			gray, 1.2, 3, 0, image.Pt(80, 80), image.Pt(0, 0),
		)
	}
	return rects
}
