package entity

import "fmt"

type BackendKind string

const (
	BackendLocal  BackendKind = "local"
	BackendRemote BackendKind = "remote"
	BackendMock   BackendKind = "mock"
)

// BackendOrder is the fixed fallback order of generation backends
var BackendOrder = []BackendKind{BackendLocal, BackendRemote, BackendMock}

func (k BackendKind) Validate() error {
	switch k {
	case BackendLocal, BackendRemote, BackendMock:
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnknownBackend, k)
	}
}

type GenerationRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	TopP        float64
	// Category is a routing hint, empty when unknown
	Category    Category
}

type GenerationResult struct {
	Text        string      `json:"text"`
	BackendUsed BackendKind `json:"backend_used"`
	Degraded    bool        `json:"degraded"`
}

// BackendStatus describes a backend for the status endpoint
type BackendStatus struct {
	Kind   BackendKind `json:"kind"`
	Ready  bool        `json:"ready"`
	Detail string      `json:"detail,omitempty"`
}
