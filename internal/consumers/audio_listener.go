package consumers

import (
	"github.com/relabs-tech/head_tracker/internal/audio"
	"github.com/relabs-tech/head_tracker/internal/orientation"
)

// AudioListener rotates the listener's forward and up vectors with the head.
type AudioListener struct {
	listener *audio.Listener
}

func NewAudioListener(l *audio.Listener) *AudioListener {
	return &AudioListener{listener: l}
}

func (a *AudioListener) ReceiveOrientation(t orientation.Transform) {
	forward := t.Apply(audio.DefaultForward)
	up := t.Apply(audio.DefaultUp)
	if err := a.listener.SetOrientation(forward, up); err != nil {
		Logf("audio: %v", err)
	}
}
