// Package chat holds the client-side conversation state machine: message
// history, pending-request state, and session identity.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"avatarsim/internal/api"
	"avatarsim/internal/errtext"
)

// State is the session lifecycle phase.
type State string

const (
	StateIdle             State = "idle"
	StateAwaitingGreeting State = "awaiting-greeting"
	StateReady            State = "ready"
	StateSending          State = "sending"
)

// Message is one entry of the visible conversation log. The id is
// client-local; only role and content ever reach the backend.
type Message struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Handlers receive session output. All callbacks run outside the session
// lock and may be nil.
type Handlers struct {
	// OnMessages fires with a snapshot of the log after every change.
	OnMessages func([]Message)
	// OnUtterance fires when a response or greeting carries audio.
	OnUtterance func(text, audioBase64 string, duration time.Duration)
	// OnError receives translated, user-facing error text.
	OnError func(text string)
	// OnPending fires when a send starts and when it settles.
	OnPending func(pending bool)
	// OnPersonaName fires when the greeting reveals the persona's name.
	OnPersonaName func(name string)
	// OnReset fires on persona switch, before the new greeting loads.
	OnReset func()
}

// clearSessionTimeout bounds the fire-and-forget old-session invalidation.
const clearSessionTimeout = 5 * time.Second

// Session is the chat state machine:
//
//	idle → awaiting-greeting → ready ⇄ sending
//
// with a reset back to awaiting-greeting on persona switch from any state.
// The message log is a single authoritative buffer updated synchronously
// under one mutex; request payloads snapshot it at append time, so a send
// can never observe a stale log.
type Session struct {
	api      *api.Client
	handlers Handlers
	logger   zerolog.Logger

	mu          sync.Mutex
	state       State
	messages    []Message
	sessionID   string
	personaID   int
	personaName string
	inFlight    bool
	greeted     bool
}

// NewSession creates an idle session with a fresh session identity.
func NewSession(client *api.Client, handlers Handlers, logger zerolog.Logger) *Session {
	return &Session{
		api:       client,
		handlers:  handlers,
		logger:    logger.With().Str("component", "chat").Logger(),
		state:     StateIdle,
		sessionID: uuid.NewString(),
	}
}

// Initialize fetches the persona's greeting exactly once per persona
// assignment and appends it as the sole assistant message. A failed fetch is
// surfaced but not retried automatically; the user retries explicitly.
func (s *Session) Initialize(ctx context.Context, personaID int) error {
	s.mu.Lock()
	if s.greeted && s.personaID == personaID {
		s.mu.Unlock()
		return nil
	}
	s.personaID = personaID
	s.greeted = true
	s.state = StateAwaitingGreeting
	s.mu.Unlock()

	initial, err := s.api.Initial(ctx, personaID)
	if err != nil {
		s.mu.Lock()
		// Leave the persona un-greeted so the user can retry explicitly.
		if s.personaID == personaID {
			s.greeted = false
		}
		s.state = StateReady
		s.mu.Unlock()
		s.logger.Error().Err(err).Int("personaId", personaID).Msg("Greeting fetch failed")
		s.emitError(err)
		return err
	}

	s.mu.Lock()
	// A persona switch while the greeting was in flight supersedes it.
	if s.personaID != personaID {
		s.mu.Unlock()
		s.logger.Debug().Int("personaId", personaID).Msg("Greeting superseded by persona switch")
		return nil
	}
	s.messages = []Message{{ID: "initial", Role: RoleAssistant, Content: initial.Text}}
	s.personaName = initial.PersonaName
	s.state = StateReady
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Info().
		Int("personaId", personaID).
		Str("persona", initial.PersonaName).
		Msg("Greeting loaded")

	s.emitMessages(snapshot)
	if s.handlers.OnPersonaName != nil {
		s.handlers.OnPersonaName(initial.PersonaName)
	}
	s.emitUtterance(initial.Text, initial.Audio, initial.Duration)
	return nil
}

// Submit sends the user's input as a chat turn. Blank input and submissions
// while another send is pending are silent no-ops. The user message is
// appended optimistically and kept even when the send fails.
func (s *Session) Submit(ctx context.Context, input string) error {
	text := strings.TrimSpace(input)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		s.logger.Debug().Msg("Submit ignored, send already pending")
		return nil
	}
	s.inFlight = true
	s.state = StateSending
	s.messages = append(s.messages, Message{ID: uuid.NewString(), Role: RoleUser, Content: text})

	// Payload built from the log at append time; ids stripped.
	history := make([]api.ChatMessage, len(s.messages))
	for i, m := range s.messages {
		history[i] = api.ChatMessage{Role: m.Role, Content: m.Content}
	}
	sessionID := s.sessionID
	personaID := s.personaID
	snapshot := s.snapshotLocked()
	s.mu.Unlock()

	s.emitPending(true)
	s.emitMessages(snapshot)

	resp, err := s.api.ChatSimple(ctx, sessionID, api.ChatRequest{
		Messages:  history,
		PersonaID: personaID,
	})

	s.mu.Lock()
	s.inFlight = false
	if s.state == StateSending {
		s.state = StateReady
	}
	if err != nil {
		s.mu.Unlock()
		s.emitPending(false)
		s.logger.Error().Err(err).Msg("Chat send failed")
		s.emitError(err)
		return err
	}
	// A persona switch mid-flight replaced the session; the stale
	// response belongs to a conversation that no longer exists.
	if s.sessionID != sessionID {
		s.mu.Unlock()
		s.emitPending(false)
		s.logger.Debug().Msg("Chat response dropped, session was reset")
		return nil
	}
	s.messages = append(s.messages, Message{ID: uuid.NewString(), Role: RoleAssistant, Content: resp.Text})
	snapshot = s.snapshotLocked()
	s.mu.Unlock()

	s.emitPending(false)
	s.emitMessages(snapshot)
	s.emitUtterance(resp.Text, resp.Audio, resp.Duration)
	return nil
}

// SwitchPersona resets the conversation for a new persona: the old session
// is invalidated best-effort, the log cleared, a fresh session identity
// minted, and the new persona's greeting fetched.
func (s *Session) SwitchPersona(ctx context.Context, personaID int) error {
	s.mu.Lock()
	oldSession := s.sessionID
	s.messages = nil
	s.sessionID = uuid.NewString()
	s.personaID = personaID
	s.personaName = ""
	s.greeted = false
	s.state = StateAwaitingGreeting
	s.mu.Unlock()

	s.logger.Info().Int("personaId", personaID).Msg("Persona switched, session reset")

	if s.handlers.OnReset != nil {
		s.handlers.OnReset()
	}
	s.emitMessages(nil)

	// Fire-and-forget: the backend drops stale sessions on its own
	// eventually, so a failure here is log-only.
	go func() {
		cctx, cancel := context.WithTimeout(context.Background(), clearSessionTimeout)
		defer cancel()
		if err := s.api.ClearSession(cctx, oldSession); err != nil {
			s.logger.Warn().Err(err).Msg("Old session cleanup failed")
		}
	}()

	return s.Initialize(ctx, personaID)
}

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Messages returns a snapshot of the conversation log.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SessionID returns the live session identity.
func (s *Session) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// PersonaID returns the active persona id.
func (s *Session) PersonaID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.personaID
}

// PersonaName returns the active persona's display name, when known.
func (s *Session) PersonaName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.personaName
}

// Pending reports whether a send is in flight.
func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inFlight
}

func (s *Session) snapshotLocked() []Message {
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *Session) emitMessages(snapshot []Message) {
	if s.handlers.OnMessages != nil {
		s.handlers.OnMessages(snapshot)
	}
}

func (s *Session) emitPending(pending bool) {
	if s.handlers.OnPending != nil {
		s.handlers.OnPending(pending)
	}
}

func (s *Session) emitError(err error) {
	if s.handlers.OnError != nil {
		s.handlers.OnError(errtext.TranslateErr(err))
	}
}

func (s *Session) emitUtterance(text, audioBase64 string, durationSeconds float64) {
	if audioBase64 == "" || s.handlers.OnUtterance == nil {
		return
	}
	s.handlers.OnUtterance(text, audioBase64, time.Duration(durationSeconds*float64(time.Second)))
}
