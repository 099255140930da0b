package main

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/user0608/facewatch"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// NewVideoSocketHandle empuja los mismos frames JPEG anotados del
// stream MJPEG pero como mensajes binarios por websocket.
func NewVideoSocketHandle(cam *Camera, engine *facewatch.Engine, cfg Config) echo.HandlerFunc {
	interval := frameInterval(cfg.StreamFPS)
	return func(c echo.Context) error {
		conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
		if err != nil {
			return err
		}
		defer conn.Close()

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
			if err := conn.WriteMessage(websocket.BinaryMessage, buf); err != nil {
				return nil
			}
			framesStreamed.Inc()
		}
	}
}
