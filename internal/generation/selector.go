package generation

import (
	"slices"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/entity"
)

// Selector resolves which backends serve a category. The answer depends on
// static configuration only.
type Selector struct {
	selected  entity.BackendKind
	overrides map[entity.Category]entity.BackendKind
	fallback  bool
	available map[entity.BackendKind]bool
}

// NewSelector builds a selector over the configured backends. The mock
// backend is always available.
func NewSelector(cfg config.GenerationConfig, configured ...entity.BackendKind) (*Selector, error) {
	selected := cfg.SelectedBackend()
	if err := selected.Validate(); err != nil {
		return nil, err
	}

	overrides, err := cfg.Overrides()
	if err != nil {
		return nil, err
	}

	available := map[entity.BackendKind]bool{entity.BackendMock: true}
	for _, kind := range configured {
		available[kind] = true
	}

	return &Selector{
		selected:  selected,
		overrides: overrides,
		fallback:  cfg.FallbackEnabled,
		available: available,
	}, nil
}

// Primary returns the backend that answers category first
func (s *Selector) Primary(category entity.Category) entity.BackendKind {
	if kind, ok := s.overrides[category]; ok {
		return kind
	}
	return s.selected
}

// Resolve returns the backends to try for category, in order. With fallback
// enabled the primary is followed by every later configured backend of the
// local, remote, mock order.
func (s *Selector) Resolve(category entity.Category) []entity.BackendKind {
	primary := s.Primary(category)
	if !s.fallback {
		return []entity.BackendKind{primary}
	}

	start := slices.Index(entity.BackendOrder, primary)
	chain := []entity.BackendKind{primary}
	for _, kind := range entity.BackendOrder[start+1:] {
		if s.available[kind] {
			chain = append(chain, kind)
		}
	}
	return chain
}

func (s *Selector) Selected() entity.BackendKind {
	return s.selected
}

func (s *Selector) FallbackEnabled() bool {
	return s.fallback
}
