package main

import (
	"encoding/base64"
	"image"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/user0608/facewatch"
	"gocv.io/x/gocv"
)

type fixedFinder struct {
	rects []image.Rectangle
}

func (f *fixedFinder) Detect(gocv.Mat) []image.Rectangle { return f.rects }

func newHandlerEngine(t *testing.T) *facewatch.Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := facewatch.New(&facewatch.Options{
		DBPath:     filepath.Join(dir, "face_database.json"),
		ModelPath:  filepath.Join(dir, "recognizer.yml"),
		SamplesDir: filepath.Join(dir, "face_data"),
		Detector:   &fixedFinder{rects: []image.Rectangle{image.Rect(10, 10, 110, 110)}},
	})
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestDecodeDataURL(t *testing.T) {
	payload := []byte{0x89, 'P', 'N', 'G'}
	encoded := base64.StdEncoding.EncodeToString(payload)

	tests := []struct {
		name    string
		in      string
		want    []byte
		wantErr bool
	}{
		{"data url", "data:image/png;base64," + encoded, payload, false},
		{"base64 pelado", encoded, payload, false},
		{"base64 inválido", "data:image/png;base64,???", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := decodeDataURL(tc.in)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRequireEngineAnswersUnavailable(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(echo.Context) error { return c.JSON(http.StatusOK, "OK") }
	err := requireEngine(nil)(next)(c)

	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no está disponible")
}

func TestRequireEnginePassesThrough(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	engine := newHandlerEngine(t)
	called := false
	next := func(echo.Context) error { called = true; return nil }

	require.NoError(t, requireEngine(engine)(next)(c))
	assert.True(t, called)
}

func TestUsersHandleEmpty(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	require.NoError(t, NewUsersHandle(newHandlerEngine(t))(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":[]}`, rec.Body.String())
}

func TestRegisterHandleRejectsNonImagePayload(t *testing.T) {
	e := echo.New()
	body := `{"name":"Alice","image":"` +
		base64.StdEncoding.EncodeToString([]byte("esto no es una imagen")) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = NewRegisterHandle(newHandlerEngine(t))(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterHandleRejectsMissingFields(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(`{"name":"Alice"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	_ = NewRegisterHandle(newHandlerEngine(t))(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFrameInterval(t *testing.T) {
	assert.Equal(t, "33.333333ms", frameInterval(30).String())
	// un valor inválido cae a la tasa por defecto
	assert.Equal(t, frameInterval(30), frameInterval(0))
}
