// Package audio coordinates playback of synthesized speech. Actual audio
// output happens in the webview; this owns the playable resource's lifecycle
// and the ended/failed notifications coming back from it.
package audio

import (
	"encoding/base64"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// PlayFunc dispatches a playable data URI to the audio output (the webview's
// <audio> element in practice). A non-nil error means playback never started.
type PlayFunc func(dataURI string) error

// Player is one playable audio resource decoded from a base64 WAV payload.
// It is created when a chat response or greeting arrives with audio and
// discarded when playback ends, is superseded, or is cancelled.
type Player struct {
	mu       sync.Mutex
	dataURI  string
	duration time.Duration
	sink     PlayFunc
	logger   zerolog.Logger

	onEnded func()
	ended   bool
	stopped bool
}

// NewPlayer builds a player from the API's base64-encoded waveform. The
// payload is checked to be valid base64 so a corrupt response is caught here
// rather than as a silent playback failure in the webview.
func NewPlayer(audioBase64 string, duration time.Duration, sink PlayFunc, logger zerolog.Logger) (*Player, error) {
	if _, err := base64.StdEncoding.DecodeString(audioBase64); err != nil {
		return nil, err
	}
	return &Player{
		dataURI:  "data:audio/wav;base64," + audioBase64,
		duration: duration,
		sink:     sink,
		logger:   logger.With().Str("component", "audio").Logger(),
	}, nil
}

// DataURI returns the playable data URI.
func (p *Player) DataURI() string {
	return p.dataURI
}

// Duration returns the reported waveform duration.
func (p *Player) Duration() time.Duration {
	return p.duration
}

// OnEnded registers the callback invoked exactly once when playback ends
// naturally. A stopped player never fires it.
func (p *Player) OnEnded(fn func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onEnded = fn
}

// Play starts playback. Failures (autoplay policy, missing output device)
// are logged, not returned: lip-sync proceeds without audible output.
func (p *Player) Play() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	sink := p.sink
	uri := p.dataURI
	p.mu.Unlock()

	if sink == nil {
		return
	}
	if err := sink(uri); err != nil {
		p.logger.Warn().Err(err).Msg("Audio playback failed to start")
	}
}

// Stop discards the player. Any later NotifyEnded is a no-op.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopped = true
}

// NotifyEnded reports that playback reached its natural end. Invoked from
// the webview's ended event; runs the OnEnded callback at most once and only
// while the player is still live.
func (p *Player) NotifyEnded() {
	p.mu.Lock()
	if p.stopped || p.ended {
		p.mu.Unlock()
		return
	}
	p.ended = true
	fn := p.onEnded
	p.mu.Unlock()

	if fn != nil {
		fn()
	}
}
