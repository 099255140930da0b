package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// Camera es el estado compartido entre el lazo de captura y los
// consumidores de frames: el último frame capturado bajo un mutex,
// siempre clonado antes de usarse.
type Camera struct {
	mu       sync.Mutex
	capture  *gocv.VideoCapture
	latest   gocv.Mat
	hasFrame bool
	lastErr  string

	deviceID int
	width    int
	height   int
}

func NewCamera(cfg Config) *Camera {
	c := &Camera{
		latest:   gocv.NewMat(),
		deviceID: cfg.CameraID,
		width:    cfg.FrameWidth,
		height:   cfg.FrameHeight,
	}
	c.mu.Lock()
	c.open()
	c.mu.Unlock()
	return c
}

// open prueba los dispositivos candidatos y confirma cada uno leyendo
// un frame real antes de quedárselo. Se llama con el mutex tomado.
func (c *Camera) open() bool {
	for _, id := range candidateDevices(c.deviceID) {
		capture, err := gocv.OpenVideoCapture(id)
		if err != nil {
			slog.Warn("no se pudo abrir la cámara", "device", id, "error", err)
			continue
		}
		probe := gocv.NewMat()
		if capture.Read(&probe) && !probe.Empty() {
			probe.Close()
			capture.Set(gocv.VideoCaptureFrameWidth, float64(c.width))
			capture.Set(gocv.VideoCaptureFrameHeight, float64(c.height))
			c.capture = capture
			c.lastErr = ""
			slog.Info("cámara inicializada", "device", id)
			return true
		}
		probe.Close()
		capture.Close()
		slog.Warn("la cámara abrió pero no entrega frames", "device", id)
	}
	c.lastErr = "no se pudo inicializar la cámara, verifique que esté conectada y libre"
	slog.Error(c.lastErr)
	return false
}

func candidateDevices(preferred int) []int {
	ids := []int{preferred}
	for _, id := range []int{0, 1, -1} {
		if id != preferred {
			ids = append(ids, id)
		}
	}
	return ids
}

// Reconnect libera la cámara actual y reintenta la inicialización.
func (c *Camera) Reconnect() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture != nil {
		c.capture.Close()
		c.capture = nil
		// darle tiempo al hardware a soltar el dispositivo
		time.Sleep(time.Second)
	}
	if c.open() {
		return true, "cámara reconectada"
	}
	return false, c.lastErr
}

// Run es el lazo de captura: lee a la tasa objetivo y publica el
// último frame. Termina cuando se cancela el contexto.
func (c *Camera) Run(ctx context.Context, fps int) {
	if fps <= 0 {
		fps = 30
	}
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	frame := gocv.NewMat()
	defer frame.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		ok, opened := c.readFrame(&frame)
		if !opened {
			continue
		}
		if !ok {
			slog.Warn("lectura de cámara falló, puede estar desconectada")
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}
}

// readFrame lee y publica el siguiente frame con el mutex tomado de
// punta a punta: Reconnect y Close liberan el handle nativo en
// cualquier momento, así que nunca puede haber un Read en vuelo sobre
// un capture ya cerrado.
func (c *Camera) readFrame(frame *gocv.Mat) (ok, opened bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture == nil {
		return false, false
	}
	if !c.capture.Read(frame) || frame.Empty() {
		return false, true
	}
	frame.CopyTo(&c.latest)
	c.hasFrame = true
	return true, true
}

// Latest devuelve una copia del último frame capturado. El clon es del
// que llama y debe cerrarlo.
func (c *Camera) Latest() (gocv.Mat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasFrame || c.latest.Empty() {
		return gocv.Mat{}, false
	}
	return c.latest.Clone(), true
}

func (c *Camera) Opened() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.capture != nil && c.capture.IsOpened()
}

func (c *Camera) LastError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Camera) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.capture != nil {
		c.capture.Close()
		c.capture = nil
	}
	c.latest.Close()
	c.hasFrame = false
}
