package embed

import "fmt"

// Config contains configuration for creating an embedding provider.
type Config struct {
	// Provider specifies which embedding provider to use ("local", "mock" or "degraded")
	Provider string

	// Endpoint is the URL for the embedding service (for local provider)
	Endpoint string

	// BinaryPath is the path to the cortex-embed binary (for local provider)
	BinaryPath string

	// APIKey for cloud providers (future)
	APIKey string

	// Model name (future: for provider-specific model selection)
	Model string

	// Dimensions is the expected embedding width, used to size a
	// degraded-mode placeholder provider so a vector index opened
	// against it still agrees on D once a real model is available.
	Dimensions int
}

// NewProvider creates an embedding provider based on the configuration.
// Supports "local" (also used for an empty name), "mock" and "degraded";
// any other name, including "openai", is rejected with an error.
func NewProvider(config Config) (Provider, error) {
	switch config.Provider {
	case "local", "": // empty defaults to local
		provider, err := newLocalProvider(config.BinaryPath)
		if err != nil {
			return nil, err
		}
		return provider, nil

	case "mock": // for testing
		return NewMockProvider(), nil

	case "degraded": // explicit opt-out, e.g. no model artifacts shipped
		dims := config.Dimensions
		if dims == 0 {
			dims = 384
		}
		return NewDegradedProvider(dims), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (supported: local, mock, degraded)", config.Provider)
	}
}
