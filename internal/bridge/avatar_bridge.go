package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"avatarsim/internal/bus"
	"avatarsim/internal/lipsync"
)

// AvatarBridge drives the facial animation loop and relays audio between the
// lip-sync scheduler and the webview's audio element.
type AvatarBridge struct {
	ctx       context.Context
	blend     *lipsync.BlendController
	scheduler *lipsync.Scheduler
	eventBus  *bus.EventBus
	frameRate int
	logger    zerolog.Logger

	mu      sync.Mutex
	stopCh  chan struct{}
	running bool
}

// NewAvatarBridge creates the avatar bridge
func NewAvatarBridge(
	blend *lipsync.BlendController,
	scheduler *lipsync.Scheduler,
	eventBus *bus.EventBus,
	frameRate int,
	logger zerolog.Logger,
) *AvatarBridge {
	if frameRate <= 0 {
		frameRate = 60
	}
	return &AvatarBridge{
		blend:     blend,
		scheduler: scheduler,
		eventBus:  eventBus,
		frameRate: frameRate,
		logger:    logger.With().Str("component", "avatar-bridge").Logger(),
	}
}

// Bind sets the Wails runtime context and starts the frame loop
func (b *AvatarBridge) Bind(ctx context.Context) {
	b.ctx = ctx

	// Playback requests come through the bus so the scheduler never needs a
	// Wails context of its own.
	b.eventBus.Subscribe(bus.EventTypeAudioPlay, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "audio:play", e.Data["dataUri"])
	})

	b.eventBus.Subscribe(bus.EventTypeSpeechStarted, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "avatar:speaking", true)
	})

	b.eventBus.Subscribe(bus.EventTypeSpeechEnded, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "avatar:speaking", false)
	})

	b.eventBus.Subscribe(bus.EventTypeModelReloaded, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "avatar:modelReloaded", e.Data)
	})

	b.startFrameLoop()
}

// startFrameLoop advances the blend weights at the configured frame rate and
// pushes each frame's weight vectors to the renderer.
func (b *AvatarBridge) startFrameLoop() {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.stopCh = make(chan struct{})
	stopCh := b.stopCh
	b.mu.Unlock()

	interval := time.Second / time.Duration(b.frameRate)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				b.blend.Step()
				head, teeth := b.blend.Weights()
				runtime.EventsEmit(b.ctx, "avatar:weights", map[string]any{
					"head":  head,
					"teeth": teeth,
				})
			}
		}
	}()

	b.logger.Info().Int("fps", b.frameRate).Msg("Frame loop started")
}

// NotifyAudioEnded is called by the frontend when the audio element fires
// its ended event.
func (b *AvatarBridge) NotifyAudioEnded() {
	b.scheduler.NotifyAudioEnded()
}

// NotifyPlaybackError is called by the frontend when playback fails. The
// utterance keeps animating; audio just stays silent.
func (b *AvatarBridge) NotifyPlaybackError(message string) {
	b.logger.Warn().Str("reason", message).Msg("Webview playback failed")
}

// IsSpeaking reports whether an utterance is currently animating
func (b *AvatarBridge) IsSpeaking() bool {
	return b.scheduler.Speaking()
}

// Shutdown stops the frame loop
func (b *AvatarBridge) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	b.running = false
	close(b.stopCh)
}
