package analyzer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		cfg          Config
		wantErr      error
		wantProvider string
		wantModel    string
	}{
		{
			name:         "default provider is groq",
			cfg:          Config{APIKey: "k"},
			wantProvider: ProviderGroq,
			wantModel:    DefaultGroqModel,
		},
		{
			name:         "openai with custom model",
			cfg:          Config{Provider: "OpenAI", APIKey: "k", Model: "gpt-4.1-mini"},
			wantProvider: ProviderOpenAI,
			wantModel:    "gpt-4.1-mini",
		},
		{
			name:         "local needs no key",
			cfg:          Config{Provider: ProviderLocal},
			wantProvider: ProviderLocal,
			wantModel:    "local-summary",
		},
		{
			name:    "missing key",
			cfg:     Config{Provider: ProviderGroq},
			wantErr: ErrNoProviderEnabled,
		},
		{
			name:    "unknown provider",
			cfg:     Config{Provider: "cohere", APIKey: "k"},
			wantErr: ErrUnsupportedProvider,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(context.Background(), tt.cfg)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, a)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantProvider, a.Provider())
			assert.Equal(t, tt.wantModel, a.Model())
			assert.NoError(t, a.Close())
		})
	}
}

func TestNew_WrapsRemoteProvidersWithRetry(t *testing.T) {
	a, err := New(context.Background(), Config{Provider: ProviderGroq, APIKey: "k"})
	require.NoError(t, err)
	_, ok := a.(*retrying)
	assert.True(t, ok)

	a, err = New(context.Background(), Config{Provider: ProviderGroq, APIKey: "k", Retry: RetryConfig{MaxRetries: 1}})
	require.NoError(t, err)
	_, ok = a.(*ChatProvider)
	assert.True(t, ok)
}

func TestKnownProvider(t *testing.T) {
	assert.True(t, KnownProvider("groq"))
	assert.True(t, KnownProvider("GEMINI"))
	assert.False(t, KnownProvider("jina"))
	assert.False(t, RequiresAPIKey("local"))
	assert.True(t, RequiresAPIKey("openai"))
}
