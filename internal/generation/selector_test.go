package generation

import (
	"testing"

	"github.com/futig/advisor-backend/internal/config"
	"github.com/futig/advisor-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelector_Resolve(t *testing.T) {
	all := []entity.BackendKind{entity.BackendLocal, entity.BackendRemote}

	tests := []struct {
		name       string
		cfg        config.GenerationConfig
		configured []entity.BackendKind
		category   entity.Category
		want       []entity.BackendKind
	}{
		{
			name:       "local falls through remote to mock",
			cfg:        config.GenerationConfig{Backend: "local", FallbackEnabled: true},
			configured: all,
			want:       []entity.BackendKind{entity.BackendLocal, entity.BackendRemote, entity.BackendMock},
		},
		{
			name:       "unconfigured remote is skipped",
			cfg:        config.GenerationConfig{Backend: "local", FallbackEnabled: true},
			configured: []entity.BackendKind{entity.BackendLocal},
			want:       []entity.BackendKind{entity.BackendLocal, entity.BackendMock},
		},
		{
			name:       "remote never falls back to local",
			cfg:        config.GenerationConfig{Backend: "remote", FallbackEnabled: true},
			configured: all,
			want:       []entity.BackendKind{entity.BackendRemote, entity.BackendMock},
		},
		{
			name: "mock alone",
			cfg:  config.GenerationConfig{Backend: "mock", FallbackEnabled: true},
			want: []entity.BackendKind{entity.BackendMock},
		},
		{
			name:       "fallback disabled",
			cfg:        config.GenerationConfig{Backend: "local"},
			configured: all,
			want:       []entity.BackendKind{entity.BackendLocal},
		},
		{
			name: "category override",
			cfg: config.GenerationConfig{
				Backend:          "local",
				CategoryBackends: map[string]string{"legal": "remote"},
				FallbackEnabled:  true,
			},
			configured: all,
			category:   entity.CategoryLegal,
			want:       []entity.BackendKind{entity.BackendRemote, entity.BackendMock},
		},
		{
			name: "override does not leak into other categories",
			cfg: config.GenerationConfig{
				Backend:          "local",
				CategoryBackends: map[string]string{"legal": "remote"},
			},
			configured: all,
			category:   entity.CategoryHealth,
			want:       []entity.BackendKind{entity.BackendLocal},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSelector(tt.cfg, tt.configured...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s.Resolve(tt.category))
		})
	}
}

func TestNewSelector_RejectsUnknownBackends(t *testing.T) {
	_, err := NewSelector(config.GenerationConfig{Backend: "vllm"})
	assert.ErrorIs(t, err, entity.ErrUnknownBackend)

	_, err = NewSelector(config.GenerationConfig{
		Backend:          "mock",
		CategoryBackends: map[string]string{"cooking": "mock"},
	})
	assert.ErrorIs(t, err, entity.ErrUnknownCategory)
}
