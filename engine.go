package facewatch

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"os"
	"sync"

	"gocv.io/x/gocv"
)

// FaceFinder localiza rostros en una imagen en escala de grises.
type FaceFinder interface {
	Detect(gray gocv.Mat) []image.Rectangle
}

type Options struct {
	CascadePath string
	DBPath      string
	ModelPath   string
	SamplesDir  string
	// Detector reemplaza al haarcascade de CascadePath cuando no es nil.
	Detector FaceFinder
}

func DefaultOptions() Options {
	return Options{
		CascadePath: "opencv_models/haarcascade_frontalface_default.xml",
		DBPath:      "face_database.json",
		ModelPath:   "recognizer.yml",
		SamplesDir:  "face_data",
	}
}

// Detection es el resultado por rostro del último frame procesado.
type Detection struct {
	Name       string `json:"name"`
	Confidence int    `json:"confidence"`
}

type Stats struct {
	UsersRegistered int     `json:"users_registered"`
	IsTrained       bool    `json:"is_trained"`
	LastTrained     *string `json:"last_trained"`
	FaceSamples     int     `json:"face_samples"`
}

var (
	knownColor   = color.RGBA{G: 255, A: 255}
	unknownColor = color.RGBA{R: 255, A: 255}
)

const unknownLabel = "Unknown"

// Engine es el orquestador: único dueño de las cuatro colecciones
// (detector, identidades, muestras, clasificador). Un solo mutex
// serializa todas las operaciones, incluida la inferencia: el predict
// de LBPH no puede correr junto a un train.
type Engine struct {
	mu         sync.Mutex
	detector   FaceFinder
	owned      *Detector
	identities *IdentityStore
	samples    *SampleStore
	recognizer *Recognizer
	lastSeen   []Detection
}

func New(opts *Options) (*Engine, error) {
	if opts == nil {
		def := DefaultOptions()
		opts = &def
	}
	e := &Engine{detector: opts.Detector}
	if e.detector == nil {
		det, err := NewDetector(opts.CascadePath)
		if err != nil {
			return nil, err
		}
		e.detector = det
		e.owned = det
	}
	samples, err := NewSampleStore(opts.SamplesDir)
	if err != nil {
		if e.owned != nil {
			e.owned.Close()
		}
		return nil, err
	}
	e.samples = samples
	e.identities = LoadIdentityStore(opts.DBPath)
	e.recognizer = NewRecognizer(opts.ModelPath)
	return e, nil
}

func (e *Engine) Close() {
	if e.owned != nil {
		e.owned.Close()
	}
}

// RegisterFace exige exactamente un rostro en la imagen. Resuelve la
// identidad por nombre (sin distinguir mayúsculas) o la crea, y guarda
// el recorte como muestra de entrenamiento.
func (e *Engine) RegisterFace(img gocv.Mat, name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	faces := e.detector.Detect(gray)
	if len(faces) != 1 {
		slog.Warn("registro rechazado", "rostros", len(faces), "name", name)
		return "", &AmbiguousDetectionError{Count: len(faces)}
	}

	id, ok := e.identities.FindByName(name)
	if !ok {
		id = e.identities.Add(name)
		slog.Info("usuario nuevo creado", "id", id, "name", name)
	}

	roi := gray.Region(faces[0])
	defer roi.Close()
	if _, err := e.samples.Save(id, roi); err != nil {
		return "", err
	}

	stored, _ := e.identities.Name(id)
	slog.Info("muestra guardada", "id", id, "name", stored)
	return fmt.Sprintf("muestra guardada para %s (id %d)", stored, id), nil
}

// Train reentrena el clasificador con todas las muestras persistidas.
// Nunca se dispara solo: reentrenar tras altas o bajas es decisión del
// que llama.
func (e *Engine) Train() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := os.Stat(e.samples.Dir()); err != nil {
		return "", ErrNoSampleDir
	}
	set, err := e.samples.ListForTraining()
	if err != nil {
		return "", err
	}
	defer set.Close()

	if err := e.recognizer.Train(set); err != nil {
		return "", err
	}
	msg := fmt.Sprintf("modelo entrenado con %d muestras", len(set.Images))
	slog.Info(msg)
	return msg, nil
}

// DeleteUser elimina la identidad y todas sus muestras. No reentrena;
// si se fue la última identidad el modelo queda invalidado porque ya
// no puede significar nada.
func (e *Engine) DeleteUser(name string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	id, ok := e.identities.FindByName(name)
	if !ok {
		return "", ErrIdentityNotFound
	}
	deleted := e.samples.DeleteAllFor(id)
	if err := e.identities.Remove(id); err != nil {
		return "", err
	}
	if e.identities.Count() == 0 {
		e.recognizer.Invalidate()
		slog.Info("sin usuarios registrados, modelo invalidado")
	}
	msg := fmt.Sprintf("se eliminó a %s junto con %d muestras", name, deleted)
	slog.Info(msg)
	return msg, nil
}

// ProcessFrame anota el frame en el lugar: caja y etiqueta por cada
// rostro detectado, verde para identidades aceptadas y rojo para
// Unknown. Nunca falla; un frame inválido o que no sea BGR de tres
// canales vuelve intacto.
func (e *Engine) ProcessFrame(frame *gocv.Mat) {
	if frame == nil || frame.Empty() || frame.Channels() != 3 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(*frame, &gray, gocv.ColorBGRToGray)

	faces := e.detector.Detect(gray)
	seen := make([]Detection, 0, len(faces))
	for _, rect := range faces {
		name, confidence := unknownLabel, 0
		if e.recognizer.Trained() {
			roi := gray.Region(rect)
			id, conf := e.recognizer.Predict(roi)
			roi.Close()
			confidence = conf
			if confidence > RecognitionThreshold {
				if stored, ok := e.identities.Name(id); ok {
					name = stored
				}
			}
		}
		seen = append(seen, Detection{Name: name, Confidence: confidence})

		boxColor, label := knownColor, fmt.Sprintf("%s (%d%%)", name, confidence)
		if name == unknownLabel {
			boxColor, label = unknownColor, unknownLabel
		}
		gocv.Rectangle(frame, rect, boxColor, 2)
		gocv.PutText(frame, label, image.Pt(rect.Min.X, rect.Min.Y-10),
			gocv.FontHersheySimplex, 0.9, boxColor, 2)
	}
	e.lastSeen = seen
}

// LastDetections devuelve lo visto en el último ProcessFrame.
func (e *Engine) LastDetections() []Detection {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Detection, len(e.lastSeen))
	copy(out, e.lastSeen)
	return out
}

func (e *Engine) Users() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identities.Names()
}

// Stats es un agregado de solo lectura, sin mutaciones.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	stats := Stats{
		UsersRegistered: e.identities.Count(),
		IsTrained:       e.recognizer.Trained(),
		FaceSamples:     e.samples.Count(),
	}
	if at, ok := e.recognizer.LastTrained(); ok {
		formatted := at.Format("2006-01-02 15:04:05")
		stats.LastTrained = &formatted
	}
	return stats
}
