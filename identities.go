package facewatch

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"

	json "github.com/goccy/go-json"
)

// IdentityStore mantiene el mapa id→nombre y su copia en disco. No es
// seguro para uso concurrente: el Engine serializa todos los accesos.
type IdentityStore struct {
	path  string
	names map[int]string
}

// LoadIdentityStore lee el snapshot persistido. Un archivo ilegible o
// corrupto se degrada a una tienda vacía con una advertencia, nunca a
// un error de arranque.
func LoadIdentityStore(path string) *IdentityStore {
	s := &IdentityStore{path: path, names: map[int]string{}}
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s
	}
	if err != nil {
		slog.Warn("no se pudo leer la base de identidades, iniciando vacía", "path", path, "error", err)
		return s
	}
	if err := json.Unmarshal(raw, &s.names); err != nil {
		slog.Warn("base de identidades corrupta, iniciando vacía", "path", path, "error", err)
		s.names = map[int]string{}
		return s
	}
	slog.Info("base de identidades cargada", "usuarios", len(s.names))
	return s
}

// FindByName busca por nombre sin distinguir mayúsculas.
func (s *IdentityStore) FindByName(name string) (int, bool) {
	for id, stored := range s.names {
		if strings.EqualFold(stored, name) {
			return id, true
		}
	}
	return 0, false
}

// Add asigna max(ids)+1 (0 si no hay ninguno), persiste y devuelve el
// nuevo id. El nombre conserva su forma original.
func (s *IdentityStore) Add(name string) int {
	id := 0
	for existing := range s.names {
		if existing >= id {
			id = existing + 1
		}
	}
	s.names[id] = name
	s.persist()
	return id
}

func (s *IdentityStore) Remove(id int) error {
	if _, ok := s.names[id]; !ok {
		return ErrIdentityNotFound
	}
	delete(s.names, id)
	s.persist()
	return nil
}

func (s *IdentityStore) Name(id int) (string, bool) {
	name, ok := s.names[id]
	return name, ok
}

// Names devuelve los nombres registrados en orden lexicográfico.
func (s *IdentityStore) Names() []string {
	out := make([]string, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (s *IdentityStore) Count() int { return len(s.names) }

// persist sobreescribe el snapshot vía archivo temporal + rename. Un
// fallo de escritura se registra y el estado en memoria sigue siendo
// autoritativo durante la vida del proceso.
func (s *IdentityStore) persist() {
	raw, err := json.Marshal(s.names)
	if err != nil {
		slog.Error("no se pudo serializar la base de identidades", "error", err)
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		slog.Error("no se pudo guardar la base de identidades", "path", s.path, "error", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		slog.Error("no se pudo reemplazar la base de identidades", "path", s.path, "error", err)
	}
}
