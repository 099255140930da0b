package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

// El lazo de captura, Reconnect y los lectores de Latest comparten el
// handle de la cámara: nada de esto debe tocar un capture liberado,
// haya o no hardware presente.
func TestCameraHandleSurvivesConcurrentReconnect(t *testing.T) {
	cam := &Camera{latest: gocv.NewMat(), width: 640, height: 480}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		cam.Run(ctx, 200)
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 3; i++ {
			cam.Reconnect()
		}
	}()

	for reconnecting := true; reconnecting; {
		select {
		case <-done:
			reconnecting = false
		default:
			if frame, ok := cam.Latest(); ok {
				frame.Close()
			}
			_ = cam.Opened()
			time.Sleep(time.Millisecond)
		}
	}

	cancel()
	wg.Wait()
	cam.Close()

	_, ok := cam.Latest()
	assert.False(t, ok)
}

func TestCandidateDevicesPreferredFirst(t *testing.T) {
	assert.Equal(t, []int{0, 1, -1}, candidateDevices(0))
	assert.Equal(t, []int{2, 0, 1, -1}, candidateDevices(2))
}
