package main

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/user0608/facewatch"
	"gocv.io/x/gocv"
)

// NewVideoFeedHandle sirve el stream MJPEG anotado como
// multipart/x-mixed-replace, un frame por parte, a la tasa objetivo.
func NewVideoFeedHandle(cam *Camera, engine *facewatch.Engine, cfg Config) echo.HandlerFunc {
	interval := frameInterval(cfg.StreamFPS)
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, "multipart/x-mixed-replace; boundary=frame")
		c.Response().WriteHeader(http.StatusOK)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-c.Request().Context().Done():
				return nil
			case <-ticker.C:
			}
			buf, ok := nextFrame(cam, engine, cfg.JPEGQuality)
			if !ok {
				continue
			}
			if _, err := fmt.Fprintf(c.Response(),
				"--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(buf)); err != nil {
				return nil
			}
			if _, err := c.Response().Write(buf); err != nil {
				return nil
			}
			if _, err := fmt.Fprint(c.Response(), "\r\n"); err != nil {
				return nil
			}
			c.Response().Flush()
			framesStreamed.Inc()
		}
	}
}

func frameInterval(fps int) time.Duration {
	if fps <= 0 {
		fps = 30
	}
	return time.Second / time.Duration(fps)
}

// nextFrame toma el último frame capturado, lo anota y lo codifica
// como JPEG. Sin cámara sale un placeholder que no pasa por el motor:
// no hay nada que reconocer y no debe pisar el último resultado real.
func nextFrame(cam *Camera, engine *facewatch.Engine, quality int) ([]byte, bool) {
	frame, live := cam.Latest()
	if !live {
		frame = placeholderFrame(cam.LastError())
	}
	defer frame.Close()

	if live && engine != nil {
		engine.ProcessFrame(&frame)
		observeDetections(engine.LastDetections())
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame,
		[]int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		slog.Error("no se pudo codificar el frame", "error", err)
		return nil, false
	}
	defer buf.Close()
	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, true
}

func observeDetections(seen []facewatch.Detection) {
	for _, d := range seen {
		facesDetected.Inc()
		if d.Name == "Unknown" {
			recognitions.WithLabelValues("unknown").Inc()
		} else {
			recognitions.WithLabelValues("known").Inc()
		}
	}
}

// placeholderFrame arma un frame negro con el estado actual para no
// dejar el stream colgado cuando la cámara no entrega nada.
func placeholderFrame(lastErr string) gocv.Mat {
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	if lastErr == "" {
		gocv.PutText(&frame, "Inicializando...", image.Pt(50, 240),
			gocv.FontHersheySimplex, 1.0, color.RGBA{R: 255, G: 255, B: 255, A: 255}, 2)
		return frame
	}
	gocv.PutText(&frame, "ERROR DE CAMARA", image.Pt(50, 50),
		gocv.FontHersheySimplex, 1.0, color.RGBA{R: 255, A: 255}, 2)
	gocv.PutText(&frame, lastErr, image.Pt(50, 100),
		gocv.FontHersheySimplex, 0.5, color.RGBA{R: 255, G: 255, B: 255, A: 255}, 1)
	return frame
}
