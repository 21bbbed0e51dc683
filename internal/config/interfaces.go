package config

import "context"

// SecretProvider resolves secret values by key. SSMProvider is the only
// production implementation; tests inject fakes.
type SecretProvider interface {
	// GetParametersBatch returns key -> plaintext value for every key it
	// could resolve.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
