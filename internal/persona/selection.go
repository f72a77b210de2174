// Package persona tracks the loaded persona list and which one is active.
package persona

import (
	"sync"

	"github.com/rs/zerolog"

	"avatarsim/internal/api"
)

// Selection holds the persona list and the selected id. The selection is
// undefined until personas load, then defaults to the first available.
type Selection struct {
	logger zerolog.Logger

	mu         sync.Mutex
	personas   []api.Persona
	selectedID int
	loaded     bool
	onChange   func(id int)
}

// NewSelection creates an empty selection.
func NewSelection(logger zerolog.Logger) *Selection {
	return &Selection{
		logger: logger.With().Str("component", "persona").Logger(),
	}
}

// SetOnChange registers the callback for selection changes. It also fires
// for the implicit default selection when personas first load.
func (s *Selection) SetOnChange(fn func(id int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// SetPersonas stores the loaded list. On first load the first persona
// becomes selected; if the selected persona disappeared (deleted on the
// management view), selection falls back to the first remaining one.
func (s *Selection) SetPersonas(list []api.Persona) {
	s.mu.Lock()
	s.personas = make([]api.Persona, len(list))
	copy(s.personas, list)

	changed := false
	if len(list) > 0 {
		if !s.loaded || !s.containsLocked(s.selectedID) {
			s.selectedID = list[0].ID
			changed = true
		}
		s.loaded = true
	}
	id := s.selectedID
	fn := s.onChange
	s.mu.Unlock()

	if changed {
		s.logger.Info().Int("personaId", id).Msg("Persona selected by default")
		if fn != nil {
			fn(id)
		}
	}
}

// Select makes a persona active. Selecting the current persona, or an id
// not in the list, is a no-op; returns whether the selection changed.
func (s *Selection) Select(id int) bool {
	s.mu.Lock()
	if !s.loaded || id == s.selectedID || !s.containsLocked(id) {
		s.mu.Unlock()
		return false
	}
	s.selectedID = id
	fn := s.onChange
	s.mu.Unlock()

	s.logger.Info().Int("personaId", id).Msg("Persona selected")
	if fn != nil {
		fn(id)
	}
	return true
}

// Selected returns the active persona id; ok is false before personas load.
func (s *Selection) Selected() (id int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID, s.loaded
}

// Personas returns a copy of the loaded list.
func (s *Selection) Personas() []api.Persona {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.Persona, len(s.personas))
	copy(out, s.personas)
	return out
}

func (s *Selection) containsLocked(id int) bool {
	for _, p := range s.personas {
		if p.ID == id {
			return true
		}
	}
	return false
}
