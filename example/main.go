// cmd/main.go
package main

import (
	"fmt"
	"os"
	"time"

	"log/slog"

	"github.com/user0608/facewatch"
	"gocv.io/x/gocv"
)

// Alta y entrenamiento fuera de línea: registra input.jpg bajo el
// nombre dado y reentrena el modelo con todas las muestras.
func main() {

	if len(os.Args) < 2 {
		fmt.Println("uso: enroll <nombre>")
		return
	}
	name := os.Args[1]

	engine, err := facewatch.New(nil)
	if err != nil {
		slog.Error("init", "err", err)
		return
	}
	defer engine.Close()

	img := gocv.IMRead("input.jpg", gocv.IMReadColor)
	if img.Empty() {
		slog.Error("leer input", "err", "no se pudo decodificar input.jpg")
		return
	}
	defer img.Close()

	start := time.Now()
	msg, err := engine.RegisterFace(img, name)
	if err != nil {
		slog.Error("registrar", "err", err)
		return
	}
	fmt.Println(msg)

	msg, err = engine.Train()
	if err != nil {
		slog.Error("entrenar", "err", err)
		return
	}
	fmt.Println(msg)
	fmt.Println("duration (s):", time.Since(start).Seconds())
}
