package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/user0608/facewatch"
)

func main() {

	cfg := LoadConfig()

	cam := NewCamera(cfg)
	defer cam.Close()

	// el servidor arranca igual sin núcleo: las rutas de gestión
	// contestan 503 y el stream muestra el error de cámara
	engine, err := facewatch.New(&facewatch.Options{
		CascadePath: cfg.CascadePath,
		DBPath:      cfg.DBPath,
		ModelPath:   cfg.ModelPath,
		SamplesDir:  cfg.SamplesDir,
	})
	if err != nil {
		slog.Error("no se pudo inicializar el núcleo de reconocimiento", "error", err)
	} else {
		defer engine.Close()
	}

	e := echo.New()
	e.Logger.SetLevel(log.INFO)
	e.HideBanner = true

	e.GET("/", func(c echo.Context) error { return c.JSON(http.StatusOK, "OK") })
	e.GET("/system_status", NewSystemStatusHandle(cam, engine))
	e.POST("/camera_reconnect", NewCameraReconnectHandle(cam))
	e.GET("/video_feed", NewVideoFeedHandle(cam, engine, cfg))
	e.GET("/video_ws", NewVideoSocketHandle(cam, engine, cfg))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	guarded := e.Group("", requireEngine(engine))
	guarded.POST("/register", NewRegisterHandle(engine))
	guarded.POST("/retrain", NewRetrainHandle(engine))
	guarded.GET("/users", NewUsersHandle(engine))
	guarded.DELETE("/users/:name", NewDeleteUserHandle(engine))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go cam.Run(ctx, cfg.StreamFPS)

	go func() {
		if err := e.Start(cfg.Addr); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		e.Logger.Fatal(err)
	}
}
