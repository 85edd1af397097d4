package engine

import (
	"log"

	"github.com/Carmen-Shannon/oxy-fluid/common"
)

const (
	// amplitudeStep is the change per arrow key press.
	amplitudeStep float32 = 0.05
	// orbitSpeed converts dragged pixels to radians.
	orbitSpeed float32 = 0.005
	// zoomStep is the camera distance change per scroll notch.
	zoomStep float32 = 4
	// orbitStep is the camera azimuth change per Left/Right key press.
	orbitStep float32 = 0.1
)

// bindWindow routes window input to the controls and camera.
func (e *engine) bindWindow() {
	w := e.window
	w.SetKeyDownCallback(e.handleKey)
	w.SetDragCallback(func(dx, dy float32) {
		e.camera.Orbit(-dx*orbitSpeed, dy*orbitSpeed)
	})
	w.SetScrollCallback(func(delta float32) {
		e.camera.Zoom(delta * zoomStep)
	})
	w.SetResizeCallback(e.resize)
	w.SetUpdateCallback(func() {
		select {
		case <-e.quitChannel:
			if err := w.Close(); err != nil {
				log.Printf("[Engine] closing window: %v", err)
			}
		default:
		}
	})
	e.resize(w.Width(), w.Height())
}

// resize updates the camera aspect and the texel size of the uniform block.
func (e *engine) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	e.camera.SetAspect(float32(width) / float32(height))
	e.mu.Lock()
	e.uniforms.TexelSize = [2]float32{1 / float32(width), 1 / float32(height)}
	e.mu.Unlock()
}

// handleKey maps control keys:
//
//	Space, P    pause / resume
//	1-4         substeps
//	Up, Down    wall amplitude
//	C           culling on / off
//	I           inject a sphere at the domain center
//	R           reset to the initial particle count
//	Left, Right orbit the camera
//	Esc         quit
func (e *engine) handleKey(keyCode uint32) {
	c := e.controls
	switch keyCode {
	case common.KeySpace, common.KeyP:
		log.Printf("[Engine] paused: %v", c.TogglePause())
	case common.Key1, common.Key2, common.Key3, common.Key4:
		c.SetSubsteps(int(keyCode - common.Key1 + 1))
	case common.KeyUp:
		c.SetAmplitude(c.Amplitude() + amplitudeStep)
	case common.KeyDown:
		c.SetAmplitude(c.Amplitude() - amplitudeStep)
	case common.KeyC:
		c.SetCulling(!c.Culling())
	case common.KeyI:
		c.Inject()
	case common.KeyR:
		c.Reset()
	case common.KeyLeft:
		e.camera.Orbit(-orbitStep, 0)
	case common.KeyRight:
		e.camera.Orbit(orbitStep, 0)
	case common.KeyEsc:
		e.signalQuit()
	}
}
