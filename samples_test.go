package facewatch

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func grayCrop(t *testing.T) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC1)
	t.Cleanup(func() { m.Close() })
	for row := 0; row < m.Rows(); row++ {
		for col := 0; col < m.Cols(); col++ {
			m.SetUCharAt(row, col, uint8((row*3+col*5)%256))
		}
	}
	return m
}

func TestSampleStoreSaveNaming(t *testing.T) {
	store, err := NewSampleStore(filepath.Join(t.TempDir(), "face_data"))
	require.NoError(t, err)

	path, err := store.Save(3, grayCrop(t))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^3_\d+\.png$`), filepath.Base(path))
	assert.Equal(t, 1, store.Count())
}

func TestSampleStoreSaveNeverOverwrites(t *testing.T) {
	store, err := NewSampleStore(filepath.Join(t.TempDir(), "face_data"))
	require.NoError(t, err)

	crop := grayCrop(t)
	first, err := store.Save(1, crop)
	require.NoError(t, err)
	second, err := store.Save(1, crop)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, store.Count())
}

func TestSampleStoreListForTraining(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "face_data")
	store, err := NewSampleStore(dir)
	require.NoError(t, err)

	_, err = store.Save(4, grayCrop(t))
	require.NoError(t, err)
	_, err = store.Save(7, grayCrop(t))
	require.NoError(t, err)

	// archivos que deben omitirse sin abortar el lote
	require.NoError(t, os.WriteFile(filepath.Join(dir, "9_111.png"), []byte("png corrupto"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "abc_1.png"), []byte{}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notas.txt"), []byte("x"), 0o644))

	set, err := store.ListForTraining()
	require.NoError(t, err)
	defer set.Close()

	require.Len(t, set.Images, 2)
	assert.ElementsMatch(t, []int{4, 7}, set.Labels)
}

func TestSampleStoreDeleteAllForOnlyOwnSamples(t *testing.T) {
	store, err := NewSampleStore(filepath.Join(t.TempDir(), "face_data"))
	require.NoError(t, err)

	crop := grayCrop(t)
	for i := 0; i < 2; i++ {
		_, err = store.Save(1, crop)
		require.NoError(t, err)
	}
	// el prefijo "1_" no debe arrastrar al id 10
	_, err = store.Save(10, crop)
	require.NoError(t, err)

	assert.Equal(t, 2, store.DeleteAllFor(1))
	assert.Equal(t, 1, store.Count())
	assert.Equal(t, 0, store.DeleteAllFor(1))
}

func TestSampleID(t *testing.T) {
	tests := []struct {
		name string
		file string
		id   int
		ok   bool
	}{
		{"normal", "3_1700000000000.png", 3, true},
		{"id largo", "120_55.png", 120, true},
		{"sin separador", "3.png", 0, false},
		{"prefijo no numérico", "abc_1.png", 0, false},
		{"negativo", "-1_55.png", 0, false},
		{"separador inicial", "_55.png", 0, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, ok := sampleID(tc.file)
			assert.Equal(t, tc.ok, ok)
			if tc.ok {
				assert.Equal(t, tc.id, id)
			}
		})
	}
}
