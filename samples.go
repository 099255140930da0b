package facewatch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gocv.io/x/gocv"
)

// SampleStore guarda los recortes de rostro en escala de grises como
// archivos PNG nombrados {id}_{unixMilli}.png.
type SampleStore struct {
	dir string
}

func NewSampleStore(dir string) (*SampleStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("no se pudo crear el directorio de muestras: %w", err)
	}
	return &SampleStore{dir: dir}, nil
}

func (s *SampleStore) Dir() string { return s.dir }

func (s *SampleStore) Save(id int, face gocv.Mat) (string, error) {
	ts := time.Now().UnixMilli()
	path := filepath.Join(s.dir, fmt.Sprintf("%d_%d.png", id, ts))
	// dos registros en el mismo milisegundo no deben pisarse
	for {
		if _, err := os.Stat(path); err != nil {
			break
		}
		ts++
		path = filepath.Join(s.dir, fmt.Sprintf("%d_%d.png", id, ts))
	}
	if !gocv.IMWrite(path, face) {
		return "", fmt.Errorf("no se pudo escribir la muestra %s", path)
	}
	return path, nil
}

// TrainingSet es el lote de imágenes y etiquetas listo para entrenar.
// El que lo recibe debe llamar Close.
type TrainingSet struct {
	Images []gocv.Mat
	Labels []int
}

func (t *TrainingSet) Close() {
	for i := range t.Images {
		t.Images[i].Close()
	}
	t.Images = nil
	t.Labels = nil
}

// ListForTraining decodifica todas las muestras persistidas. Las que
// no se pueden decodificar o tienen nombre inválido se omiten con una
// advertencia, no abortan el lote.
func (s *SampleStore) ListForTraining() (*TrainingSet, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("no se pudo listar el directorio de muestras: %w", err)
	}
	set := &TrainingSet{}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".png") {
			continue
		}
		id, ok := sampleID(name)
		if !ok {
			slog.Warn("nombre de muestra inválido, omitida", "file", name)
			continue
		}
		img := gocv.IMRead(filepath.Join(s.dir, name), gocv.IMReadGrayScale)
		if img.Empty() {
			img.Close()
			slog.Warn("no se pudo decodificar la muestra, omitida", "file", name)
			continue
		}
		set.Images = append(set.Images, img)
		set.Labels = append(set.Labels, id)
	}
	return set, nil
}

// DeleteAllFor elimina todas las muestras del id dado y devuelve
// cuántas borró. Fallos individuales se registran y se saltan.
func (s *SampleStore) DeleteAllFor(id int) int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		slog.Warn("no se pudo listar el directorio de muestras", "dir", s.dir, "error", err)
		return 0
	}
	prefix := fmt.Sprintf("%d_", id)
	deleted := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, entry.Name())); err != nil {
			slog.Warn("no se pudo eliminar la muestra", "file", entry.Name(), "error", err)
			continue
		}
		deleted++
	}
	return deleted
}

func (s *SampleStore) Count() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, entry := range entries {
		if !entry.IsDir() {
			count++
		}
	}
	return count
}

func sampleID(name string) (int, bool) {
	idx := strings.Index(name, "_")
	if idx <= 0 {
		return 0, false
	}
	id, err := strconv.Atoi(name[:idx])
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
