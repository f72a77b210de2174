package bridge

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2/pkg/runtime"

	"avatarsim/internal/api"
	"avatarsim/internal/bus"
	"avatarsim/internal/errtext"
	"avatarsim/internal/persona"
)

// PersonaBridge exposes persona listing, selection and management to the
// frontend. Errors cross the bridge as user-facing text.
type PersonaBridge struct {
	ctx       context.Context
	apiClient *api.Client
	selection *persona.Selection
	eventBus  *bus.EventBus
	logger    zerolog.Logger
}

// NewPersonaBridge creates the persona bridge
func NewPersonaBridge(
	apiClient *api.Client,
	selection *persona.Selection,
	eventBus *bus.EventBus,
	logger zerolog.Logger,
) *PersonaBridge {
	return &PersonaBridge{
		apiClient: apiClient,
		selection: selection,
		eventBus:  eventBus,
		logger:    logger.With().Str("component", "persona-bridge").Logger(),
	}
}

// Bind sets the Wails runtime context
func (b *PersonaBridge) Bind(ctx context.Context) {
	b.ctx = ctx

	b.eventBus.Subscribe(bus.EventTypePersonasLoaded, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "persona:list", e.Data["personas"])
	})

	b.eventBus.Subscribe(bus.EventTypePersonaChanged, func(e bus.Event) {
		runtime.EventsEmit(b.ctx, "persona:changed", e.Data["personaId"])
	})
}

// Refresh reloads the persona list from the backend
func (b *PersonaBridge) Refresh() ([]api.Persona, error) {
	list, err := b.apiClient.ListPersonas(context.Background())
	if err != nil {
		b.logger.Error().Err(err).Msg("Persona list fetch failed")
		return nil, errtext.WrapErr(err)
	}
	b.selection.SetPersonas(list)
	b.eventBus.Publish(bus.Event{
		Type: bus.EventTypePersonasLoaded,
		Data: map[string]any{"personas": list},
	})
	return list, nil
}

// GetPersonas returns the cached persona list
func (b *PersonaBridge) GetPersonas() []api.Persona {
	return b.selection.Personas()
}

// GetSelected returns the active persona id, or -1 before personas load
func (b *PersonaBridge) GetSelected() int {
	id, ok := b.selection.Selected()
	if !ok {
		return -1
	}
	return id
}

// Select switches the active persona. Selecting the current persona is a
// no-op; the conversation reset is handled by the selection's change hook.
func (b *PersonaBridge) Select(id int) bool {
	return b.selection.Select(id)
}

// Create adds a persona and refreshes the list
func (b *PersonaBridge) Create(p api.PersonaCreate) (*api.Persona, error) {
	created, err := b.apiClient.CreatePersona(context.Background(), p)
	if err != nil {
		b.logger.Error().Err(err).Msg("Persona create failed")
		return nil, errtext.WrapErr(err)
	}
	b.Refresh()
	return created, nil
}

// Update edits a persona and refreshes the list
func (b *PersonaBridge) Update(id int, p api.PersonaUpdate) (*api.Persona, error) {
	updated, err := b.apiClient.UpdatePersona(context.Background(), id, p)
	if err != nil {
		b.logger.Error().Err(err).Int("personaId", id).Msg("Persona update failed")
		return nil, errtext.WrapErr(err)
	}
	b.Refresh()
	return updated, nil
}

// Delete removes a persona and refreshes the list. If the deleted persona
// was selected, selection falls back to the first remaining one.
func (b *PersonaBridge) Delete(id int) error {
	if err := b.apiClient.DeletePersona(context.Background(), id); err != nil {
		b.logger.Error().Err(err).Int("personaId", id).Msg("Persona delete failed")
		return errtext.WrapErr(err)
	}
	b.Refresh()
	return nil
}
