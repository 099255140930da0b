package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestNextFrameWithoutCameraKeepsLastDetections(t *testing.T) {
	cam := &Camera{latest: gocv.NewMat()}
	t.Cleanup(cam.Close)

	engine := newHandlerEngine(t)
	frame := gocv.NewMatWithSize(240, 320, gocv.MatTypeCV8UC3)
	defer frame.Close()
	engine.ProcessFrame(&frame)
	require.Len(t, engine.LastDetections(), 1)

	buf, ok := nextFrame(cam, engine, 85)
	require.True(t, ok)
	assert.NotEmpty(t, buf)

	// el placeholder no pasa por el motor: el último resultado real
	// sigue disponible para /system_status
	assert.Len(t, engine.LastDetections(), 1)
}

func TestPlaceholderFrameVariants(t *testing.T) {
	waiting := placeholderFrame("")
	defer waiting.Close()
	assert.False(t, waiting.Empty())

	failed := placeholderFrame("no se pudo inicializar la cámara")
	defer failed.Close()
	assert.False(t, failed.Empty())
}
