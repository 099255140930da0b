package facewatch

import (
	"log/slog"
	"math"
	"os"
	"time"

	"gocv.io/x/gocv"
	"gocv.io/x/gocv/contrib"
)

// RecognitionThreshold es la confianza mínima (exclusiva) para aceptar
// una identidad predicha; por debajo se reporta Unknown.
const RecognitionThreshold = 65

// Recognizer envuelve el clasificador LBPH junto con el estado
// entrenado/no-entrenado y su persistencia. El modelo refleja un
// snapshot del último entrenamiento explícito, no el contenido actual
// de las tiendas.
type Recognizer struct {
	model       *contrib.LBPHFaceRecognizer
	modelPath   string
	trained     bool
	lastTrained time.Time
}

func NewRecognizer(modelPath string) *Recognizer {
	model := contrib.NewLBPHFaceRecognizer()
	model.SetRadius(1)
	model.SetNeighbors(8)
	model.SetThreshold(85)
	r := &Recognizer{model: model, modelPath: modelPath}
	if _, err := os.Stat(modelPath); err == nil {
		r.model.LoadFile(modelPath)
		r.trained = true
		// el blob no guarda la fecha real, se usa la de carga
		r.lastTrained = time.Now()
		slog.Info("modelo de reconocimiento cargado", "path", modelPath)
	}
	return r
}

func (r *Recognizer) Trained() bool { return r.trained }

func (r *Recognizer) LastTrained() (time.Time, bool) {
	return r.lastTrained, r.trained && !r.lastTrained.IsZero()
}

// Train ajusta el modelo sobre el lote completo y lo persiste. Con
// menos de 2 muestras falla con ErrInsufficientData sin tocar nada.
func (r *Recognizer) Train(set *TrainingSet) error {
	if len(set.Images) < 2 {
		return ErrInsufficientData
	}
	r.model.Train(set.Images, set.Labels)
	r.model.SaveFile(r.modelPath)
	r.trained = true
	r.lastTrained = time.Now()
	return nil
}

// Predict devuelve el id predicho y la confianza ya invertida y
// acotada a [0, 100]. Solo es válido cuando Trained() es true; el
// Engine lo garantiza.
func (r *Recognizer) Predict(face gocv.Mat) (int, int) {
	resp := r.model.PredictExtendedResponse(face)
	confidence := clampConfidence(100 - int(math.Round(float64(resp.Confidence))))
	return int(resp.Label), confidence
}

// Invalidate fuerza el estado no-entrenado. Se usa cuando se elimina
// la última identidad: sin usuarios el modelo no significa nada.
func (r *Recognizer) Invalidate() {
	r.trained = false
}

func clampConfidence(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
