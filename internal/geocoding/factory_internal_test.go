package geocoding

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestNewProviderDefaults(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("limit defaults when unset", func(t *testing.T) {
		provider, err := NewProvider(ProviderConfig{Type: ProviderTypeOpenMeteo, Logger: logger})
		require.NoError(t, err)

		openMeteo, ok := provider.(*OpenMeteoProvider)
		require.True(t, ok)
		assert.Equal(t, DefaultLimit, openMeteo.limit)
	})

	t.Run("configured limit is kept", func(t *testing.T) {
		provider, err := NewProvider(ProviderConfig{Type: ProviderTypeNominatim, Limit: 3, Logger: logger})
		require.NoError(t, err)

		nominatim, ok := provider.(*NominatimProvider)
		require.True(t, ok)
		assert.Equal(t, 3, nominatim.limit)
	})

	t.Run("open-meteo rate defaults to its fair-use rate", func(t *testing.T) {
		provider, err := NewProvider(ProviderConfig{Type: ProviderTypeOpenMeteo, Logger: logger})
		require.NoError(t, err)

		openMeteo, ok := provider.(*OpenMeteoProvider)
		require.True(t, ok)
		assert.Equal(t, rate.Limit(openMeteoRateLimit), openMeteo.limiter.Limit())
		assert.Equal(t, OpenMeteoBaseURL, openMeteo.baseURL)
	})

	t.Run("open-meteo keeps a configured rate", func(t *testing.T) {
		provider, err := NewProvider(ProviderConfig{Type: ProviderTypeOpenMeteo, RateLimit: 2, Logger: logger})
		require.NoError(t, err)

		openMeteo, ok := provider.(*OpenMeteoProvider)
		require.True(t, ok)
		assert.Equal(t, rate.Limit(2), openMeteo.limiter.Limit())
	})

	t.Run("nominatim stays at one request per second", func(t *testing.T) {
		provider, err := NewProvider(ProviderConfig{Type: ProviderTypeNominatim, RateLimit: 50, Logger: logger})
		require.NoError(t, err)

		nominatim, ok := provider.(*NominatimProvider)
		require.True(t, ok)
		assert.Equal(t, rate.Limit(nominatimRateLimit), nominatim.limiter.Limit())
	})
}
