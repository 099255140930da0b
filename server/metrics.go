package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	framesStreamed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facewatch_frames_streamed_total",
		Help: "Frames JPEG anotados enviados a los consumidores",
	})

	facesDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "facewatch_faces_detected_total",
		Help: "Rostros detectados durante el procesamiento de frames",
	})

	recognitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facewatch_recognitions_total",
		Help: "Resultados de reconocimiento por frame procesado",
	}, []string{"result"}) // "known" | "unknown"

	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facewatch_registrations_total",
		Help: "Intentos de registro de rostro",
	}, []string{"result"}) // "success" | "error"

	trainings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "facewatch_trainings_total",
		Help: "Entrenamientos del modelo",
	}, []string{"result"}) // "success" | "error"
)
