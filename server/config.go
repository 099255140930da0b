package main

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string
	CascadePath string
	DBPath      string
	ModelPath   string
	SamplesDir  string
	CameraID    int
	FrameWidth  int
	FrameHeight int
	StreamFPS   int
	JPEGQuality int
}

func LoadConfig() Config {
	_ = godotenv.Load()
	return Config{
		Addr:        getenv("LISTEN_ADDR", ":1323"),
		CascadePath: getenv("CASCADE_PATH", "opencv_models/haarcascade_frontalface_default.xml"),
		DBPath:      getenv("DB_PATH", "face_database.json"),
		ModelPath:   getenv("MODEL_PATH", "recognizer.yml"),
		SamplesDir:  getenv("SAMPLES_DIR", "face_data"),
		CameraID:    getenvInt("CAMERA_ID", 0),
		FrameWidth:  getenvInt("FRAME_WIDTH", 1280),
		FrameHeight: getenvInt("FRAME_HEIGHT", 720),
		StreamFPS:   getenvInt("STREAM_FPS", 30),
		JPEGQuality: getenvInt("JPEG_QUALITY", 85),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
