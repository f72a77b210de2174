package audio

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var wavPayload = base64.StdEncoding.EncodeToString([]byte("RIFF fake wav"))

func TestNewPlayer_RejectsInvalidBase64(t *testing.T) {
	_, err := NewPlayer("not!!valid@@base64", time.Second, nil, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error for invalid base64 payload")
	}
}

func TestNewPlayer_BuildsDataURI(t *testing.T) {
	p, err := NewPlayer(wavPayload, 2*time.Second, nil, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPlayer: %v", err)
	}
	if !strings.HasPrefix(p.DataURI(), "data:audio/wav;base64,") {
		t.Errorf("DataURI() = %q, want data:audio/wav;base64, prefix", p.DataURI())
	}
	if !strings.HasSuffix(p.DataURI(), wavPayload) {
		t.Error("DataURI() should carry the original payload")
	}
	if p.Duration() != 2*time.Second {
		t.Errorf("Duration() = %v", p.Duration())
	}
}

func TestPlayer_PlayDispatchesToSink(t *testing.T) {
	var got string
	p, _ := NewPlayer(wavPayload, time.Second, func(uri string) error {
		got = uri
		return nil
	}, zerolog.Nop())

	p.Play()
	if got != p.DataURI() {
		t.Errorf("sink received %q, want %q", got, p.DataURI())
	}
}

func TestPlayer_PlaySinkFailureIsNotFatal(t *testing.T) {
	p, _ := NewPlayer(wavPayload, time.Second, func(string) error {
		return errors.New("autoplay blocked")
	}, zerolog.Nop())

	// Must not panic; lip-sync proceeds silently
	p.Play()
}

func TestPlayer_NotifyEndedFiresOnce(t *testing.T) {
	p, _ := NewPlayer(wavPayload, time.Second, nil, zerolog.Nop())

	var fired int
	p.OnEnded(func() { fired++ })

	p.NotifyEnded()
	p.NotifyEnded()
	p.NotifyEnded()

	if fired != 1 {
		t.Errorf("OnEnded fired %d times, want 1", fired)
	}
}

func TestPlayer_StoppedPlayerSuppressesEverything(t *testing.T) {
	var played, fired int
	p, _ := NewPlayer(wavPayload, time.Second, func(string) error {
		played++
		return nil
	}, zerolog.Nop())
	p.OnEnded(func() { fired++ })

	p.Stop()
	p.Play()
	p.NotifyEnded()

	if played != 0 {
		t.Errorf("stopped player started playback %d times", played)
	}
	if fired != 0 {
		t.Errorf("stopped player fired OnEnded %d times", fired)
	}
}
