package lipsync

import (
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"avatarsim/internal/audio"
	"avatarsim/internal/viseme"
)

// weightResetDelay is how long after playback ends before every viseme
// weight on the head and teeth meshes snaps back to zero.
const weightResetDelay = 300 * time.Millisecond

// Utterance is one text+audio unit to lip-sync.
type Utterance struct {
	Text     string
	Player   *audio.Player
	Duration time.Duration
	// OnEnded is invoked exactly once when playback ends naturally.
	OnEnded func()
}

// Scheduler turns an utterance into timed viseme activations synchronized to
// audio playback. The duration is divided uniformly across the characters of
// the text; no phoneme or prosody modeling. At most one utterance runs at a
// time: starting a new one, or Close, cancels whatever is active.
type Scheduler struct {
	visemes      viseme.Map
	active       *ActiveViseme
	resetWeights func()
	logger       zerolog.Logger

	mu         sync.Mutex
	run        *utteranceRun
	resetTimer *time.Timer
	closed     bool
}

type utteranceRun struct {
	player *audio.Player

	stop     chan struct{}
	stopOnce sync.Once

	mu      sync.Mutex
	stopped bool
	timers  []*time.Timer
}

// NewScheduler creates a scheduler. resetWeights zeroes all viseme blend
// weights; it runs on a delay after each utterance's natural end.
func NewScheduler(visemes viseme.Map, active *ActiveViseme, resetWeights func(), logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		visemes:      visemes,
		active:       active,
		resetWeights: resetWeights,
		logger:       logger.With().Str("component", "lipsync").Logger(),
	}
}

// Speak starts lip-syncing an utterance, superseding any in-flight one. The
// previous utterance's audio and timers are stopped before the new ones
// start; no two utterances ever tick concurrently.
//
// Callers are expected to pass non-empty text and a positive duration; if
// not, scheduling is a no-op so the division below can never be by zero.
func (s *Scheduler) Speak(u Utterance) {
	chars := []rune(strings.ToUpper(u.Text))
	if len(chars) == 0 || u.Duration <= 0 || u.Player == nil {
		s.logger.Warn().
			Int("chars", len(chars)).
			Dur("duration", u.Duration).
			Msg("Ignoring utterance without text or duration")
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if prev := s.run; prev != nil {
		s.cancelRun(prev)
	}
	run := &utteranceRun{
		player: u.Player,
		stop:   make(chan struct{}),
	}
	s.run = run
	s.mu.Unlock()

	step := u.Duration / time.Duration(len(chars))
	u.Player.OnEnded(func() {
		s.finish(run, u.OnEnded)
	})

	s.logger.Debug().
		Int("chars", len(chars)).
		Dur("duration", u.Duration).
		Dur("timePerChar", step).
		Msg("Starting utterance")

	go s.tickLoop(run, chars, step)
	u.Player.Play()
}

// tickLoop fires once per character slot. Tick i activates the character's
// viseme (if mapped) and schedules a half-slot clear that only applies while
// that same viseme is still active, so a slow clear cannot erase a newer
// activation.
func (s *Scheduler) tickLoop(run *utteranceRun, chars []rune, step time.Duration) {
	ticker := time.NewTicker(step)
	defer ticker.Stop()

	for i := 0; i < len(chars); i++ {
		if i == 0 {
			select {
			case <-run.stop:
				return
			default:
			}
		} else {
			select {
			case <-run.stop:
				return
			case <-ticker.C:
			}
		}

		shape, ok := s.visemes.Lookup(chars[i])
		if !ok {
			// Unmapped character: leave the cell alone and let the
			// blend controller decay toward neutral.
			continue
		}

		run.activate(s.active, shape, step/2)
	}
}

// finish handles the natural end of playback: the tick loop and pending
// clears stop, the active viseme is cleared unconditionally, and the blend
// weights are scheduled to reset shortly after.
func (s *Scheduler) finish(run *utteranceRun, onEnded func()) {
	s.mu.Lock()
	if s.run != run {
		s.mu.Unlock()
		return
	}
	s.run = nil
	run.halt()
	s.active.Clear()
	if s.resetWeights != nil {
		s.resetTimer = time.AfterFunc(weightResetDelay, s.resetWeights)
	}
	s.mu.Unlock()

	s.logger.Debug().Msg("Utterance playback ended")
	if onEnded != nil {
		onEnded()
	}
}

// NotifyAudioEnded forwards the audio output's ended event to the current
// utterance. Ended events for superseded utterances are dropped by their
// stopped players.
func (s *Scheduler) NotifyAudioEnded() {
	s.mu.Lock()
	run := s.run
	s.mu.Unlock()
	if run != nil {
		run.player.NotifyEnded()
	}
}

// Cancel stops the in-flight utterance, if any, discarding its audio and
// timers. Used on persona switch.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.run != nil {
		s.cancelRun(s.run)
		s.run = nil
	}
}

// Speaking reports whether an utterance is currently active.
func (s *Scheduler) Speaking() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run != nil
}

// Close tears the scheduler down: the live utterance and every pending
// timer, the delayed weight reset included, are cancelled. A timer that
// already fired into a closed scheduler is a no-op.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.run != nil {
		s.cancelRun(s.run)
		s.run = nil
	}
	if s.resetTimer != nil {
		s.resetTimer.Stop()
		s.resetTimer = nil
	}
}

// cancelRun stops a run's audio and timers. Caller holds s.mu.
func (s *Scheduler) cancelRun(run *utteranceRun) {
	run.halt()
	run.player.Stop()
	s.active.Clear()
}

func (r *utteranceRun) halt() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.mu.Lock()
	r.stopped = true
	for _, t := range r.timers {
		t.Stop()
	}
	r.timers = nil
	r.mu.Unlock()
}

// activate sets the viseme and registers its half-slot clear in one critical
// section against halt. A tick racing a cancel either lands before halt, in
// which case the caller's subsequent Clear wipes it, or sees stopped and is a
// no-op; a viseme can never outlive its run.
func (r *utteranceRun) activate(active *ActiveViseme, shape viseme.Shape, clearAfter time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	active.Set(shape)
	r.timers = append(r.timers, time.AfterFunc(clearAfter, func() {
		active.ClearIf(shape)
	}))
}
