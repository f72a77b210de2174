// Package bridge provides Wails bindings between Go and frontend
package bridge

import (
	"context"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"avatarsim/internal/bus"
	"avatarsim/internal/chat"
)

// ChatBridge exposes the conversation to the frontend
type ChatBridge struct {
	ctx      context.Context
	session  *chat.Session
	eventBus *bus.EventBus
}

// NewChatBridge creates the chat bridge
func NewChatBridge(session *chat.Session, eventBus *bus.EventBus) *ChatBridge {
	return &ChatBridge{
		session:  session,
		eventBus: eventBus,
	}
}

// Bind sets the Wails runtime context
func (b *ChatBridge) Bind(ctx context.Context) {
	b.ctx = ctx

	b.eventBus.Subscribe(bus.EventTypeChatMessages, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "chat:messages", e.Data["messages"])
	})

	b.eventBus.Subscribe(bus.EventTypeChatError, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "chat:error", e.Data["error"])
	})

	b.eventBus.Subscribe(bus.EventTypeChatPending, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "chat:pending", e.Data["pending"])
	})

	b.eventBus.Subscribe(bus.EventTypePersonaName, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "chat:personaName", e.Data["name"])
	})
}

// Submit sends the user's input as a chat turn. Blank input and input while
// a send is pending are ignored.
func (b *ChatBridge) Submit(text string) {
	go b.session.Submit(context.Background(), text)
}

// RetryGreeting refetches the active persona's greeting after a failed
// load. A no-op when the greeting already arrived.
func (b *ChatBridge) RetryGreeting() {
	go b.session.Initialize(context.Background(), b.session.PersonaID())
}

// GetMessages returns the current conversation log
func (b *ChatBridge) GetMessages() []chat.Message {
	return b.session.Messages()
}

// GetState returns the session lifecycle phase
func (b *ChatBridge) GetState() string {
	return string(b.session.State())
}

// GetPersonaName returns the active persona's display name
func (b *ChatBridge) GetPersonaName() string {
	return b.session.PersonaName()
}

// IsPending reports whether a send is in flight
func (b *ChatBridge) IsPending() bool {
	return b.session.Pending()
}
