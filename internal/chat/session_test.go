package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatarsim/internal/api"
)

// fakeBackend is a minimal persona/chat backend for session tests.
type fakeBackend struct {
	mu           sync.Mutex
	initialCalls int
	chatCalls    int
	clearedIDs   []string
	chatResponse  api.ChatResponse
	chatStatus    int
	initialStatus int
	blockChat     chan struct{} // when non-nil, chat handler waits on it
	personaNames  map[int]string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chatResponse:  api.ChatResponse{Text: "Resposta.", Audio: "UklGRg==", Duration: 1.0},
		chatStatus:    http.StatusOK,
		initialStatus: http.StatusOK,
		personaNames:  map[int]string{1: "Ana", 2: "Carlos"},
	}
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/initial", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.initialCalls++
		status := f.initialStatus
		f.mu.Unlock()
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"detail": "falha ao gerar saudação"})
			return
		}
		id, _ := strconv.Atoi(r.URL.Query().Get("persona_id"))
		json.NewEncoder(w).Encode(api.InitialResponse{
			Text:        "Olá, eu sou a entrevistadora.",
			Audio:       "UklGRg==",
			Duration:    2.0,
			PersonaID:   id,
			PersonaName: f.personaNames[id],
		})
	})
	mux.HandleFunc("/api/chat/simple", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.chatCalls++
		block := f.blockChat
		status := f.chatStatus
		resp := f.chatResponse
		f.mu.Unlock()
		if block != nil {
			<-block
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]string{"detail": "falha interna"})
			return
		}
		json.NewEncoder(w).Encode(resp)
	})
	mux.HandleFunc("/api/session/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.clearedIDs = append(f.clearedIDs, r.URL.Path[len("/api/session/"):])
		f.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (f *fakeBackend) counts() (initial, chat int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialCalls, f.chatCalls
}

func (f *fakeBackend) cleared() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.clearedIDs))
	copy(out, f.clearedIDs)
	return out
}

func newTestSession(t *testing.T, backend *fakeBackend, handlers Handlers) *Session {
	t.Helper()
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)
	client := api.NewClient(api.Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, zerolog.Nop())
	return NewSession(client, handlers, zerolog.Nop())
}

func TestSession_InitializeLoadsGreeting(t *testing.T) {
	backend := newFakeBackend()

	var gotName string
	var utterText string
	var utterDur time.Duration
	s := newTestSession(t, backend, Handlers{
		OnPersonaName: func(name string) { gotName = name },
		OnUtterance: func(text, audio string, d time.Duration) {
			utterText = text
			utterDur = d
		},
	})

	require.NoError(t, s.Initialize(context.Background(), 1))

	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleAssistant, msgs[0].Role)
	assert.Equal(t, "Olá, eu sou a entrevistadora.", msgs[0].Content)
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, "Ana", gotName)
	assert.Equal(t, "Olá, eu sou a entrevistadora.", utterText)
	assert.Equal(t, 2*time.Second, utterDur)
}

func TestSession_InitializeOnlyOncePerPersona(t *testing.T) {
	backend := newFakeBackend()
	s := newTestSession(t, backend, Handlers{})

	require.NoError(t, s.Initialize(context.Background(), 1))
	require.NoError(t, s.Initialize(context.Background(), 1))

	initial, _ := backend.counts()
	assert.Equal(t, 1, initial, "greeting should be fetched once per persona")
}

func TestSession_FailedGreetingCanBeRetried(t *testing.T) {
	backend := newFakeBackend()
	backend.initialStatus = http.StatusInternalServerError

	var gotError string
	s := newTestSession(t, backend, Handlers{
		OnError: func(text string) { gotError = text },
	})

	require.Error(t, s.Initialize(context.Background(), 1))
	assert.Equal(t, "Erro ao carregar mensagem inicial", gotError)
	assert.Empty(t, s.Messages())

	// The backend recovers; retrying the same persona must refetch
	backend.mu.Lock()
	backend.initialStatus = http.StatusOK
	backend.mu.Unlock()

	require.NoError(t, s.Initialize(context.Background(), 1))

	initial, _ := backend.counts()
	assert.Equal(t, 2, initial, "retry must reach the backend")
	msgs := s.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleAssistant, msgs[0].Role)
	assert.Equal(t, "Ana", s.PersonaName())
}

func TestSession_SubmitBlankIsNoOp(t *testing.T) {
	backend := newFakeBackend()
	s := newTestSession(t, backend, Handlers{})
	require.NoError(t, s.Initialize(context.Background(), 1))

	require.NoError(t, s.Submit(context.Background(), ""))
	require.NoError(t, s.Submit(context.Background(), "   \t\n"))

	_, chats := backend.counts()
	assert.Equal(t, 0, chats)
	assert.Len(t, s.Messages(), 1)
}

func TestSession_SubmitAppendsUserAndAssistant(t *testing.T) {
	backend := newFakeBackend()

	var pendingSeq []bool
	s := newTestSession(t, backend, Handlers{
		OnPending: func(p bool) { pendingSeq = append(pendingSeq, p) },
	})
	require.NoError(t, s.Initialize(context.Background(), 1))

	require.NoError(t, s.Submit(context.Background(), "  Minha resposta  "))

	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, "Minha resposta", msgs[1].Content, "input should be trimmed")
	assert.Equal(t, RoleAssistant, msgs[2].Role)
	assert.Equal(t, "Resposta.", msgs[2].Content)
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, []bool{true, false}, pendingSeq)
	assert.False(t, s.Pending())
}

func TestSession_SubmitWhilePendingIsNoOp(t *testing.T) {
	backend := newFakeBackend()
	backend.blockChat = make(chan struct{})
	s := newTestSession(t, backend, Handlers{})
	require.NoError(t, s.Initialize(context.Background(), 1))

	done := make(chan struct{})
	go func() {
		s.Submit(context.Background(), "primeira")
		close(done)
	}()

	// Wait until the first submit is in flight
	require.Eventually(t, s.Pending, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Submit(context.Background(), "segunda"))
	_, chats := backend.counts()
	assert.Equal(t, 1, chats, "second submit must not reach the backend")

	close(backend.blockChat)
	<-done

	// Only the first user message and its reply were appended
	msgs := s.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "primeira", msgs[1].Content)
}

func TestSession_SubmitErrorKeepsUserMessage(t *testing.T) {
	backend := newFakeBackend()
	backend.chatStatus = http.StatusInternalServerError

	var gotError string
	s := newTestSession(t, backend, Handlers{
		OnError: func(text string) { gotError = text },
	})
	require.NoError(t, s.Initialize(context.Background(), 1))

	err := s.Submit(context.Background(), "pergunta")
	require.Error(t, err)

	msgs := s.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, RoleUser, msgs[1].Role)
	assert.Equal(t, "pergunta", msgs[1].Content)
	assert.Equal(t, StateReady, s.State())
	assert.Equal(t, "falha interna", gotError, "backend detail passes through")
	assert.False(t, s.Pending())
}

func TestSession_SwitchPersonaResetsConversation(t *testing.T) {
	backend := newFakeBackend()

	var resets atomic.Int32
	s := newTestSession(t, backend, Handlers{
		OnReset: func() { resets.Add(1) },
	})
	require.NoError(t, s.Initialize(context.Background(), 1))
	require.NoError(t, s.Submit(context.Background(), "oi"))
	oldSession := s.SessionID()

	require.NoError(t, s.SwitchPersona(context.Background(), 2))

	assert.NotEqual(t, oldSession, s.SessionID(), "switch must mint a new session identity")
	assert.Equal(t, int32(1), resets.Load())
	assert.Equal(t, 2, s.PersonaID())
	assert.Equal(t, "Carlos", s.PersonaName())

	msgs := s.Messages()
	require.Len(t, msgs, 1, "log holds only the new greeting")
	assert.Equal(t, RoleAssistant, msgs[0].Role)

	// Old session invalidation is fire-and-forget
	require.Eventually(t, func() bool {
		cleared := backend.cleared()
		return len(cleared) == 1 && cleared[0] == oldSession
	}, time.Second, 10*time.Millisecond)
}

func TestSession_StaleResponseDroppedAfterSwitch(t *testing.T) {
	backend := newFakeBackend()
	backend.blockChat = make(chan struct{})
	s := newTestSession(t, backend, Handlers{})
	require.NoError(t, s.Initialize(context.Background(), 1))

	done := make(chan struct{})
	go func() {
		s.Submit(context.Background(), "resposta antiga")
		close(done)
	}()
	require.Eventually(t, s.Pending, time.Second, 5*time.Millisecond)

	// Persona switch replaces the session while the send is in flight
	require.NoError(t, s.SwitchPersona(context.Background(), 2))

	close(backend.blockChat)
	<-done

	// The late reply must not leak into the new conversation
	for _, m := range s.Messages() {
		assert.NotEqual(t, "Resposta.", m.Content)
	}
	require.Len(t, s.Messages(), 1)
}

func TestSession_DistinctSessionIdentities(t *testing.T) {
	backend := newFakeBackend()
	a := newTestSession(t, backend, Handlers{})
	b := newTestSession(t, backend, Handlers{})

	assert.NotEqual(t, a.SessionID(), b.SessionID())
	assert.NotEmpty(t, a.SessionID())
}
