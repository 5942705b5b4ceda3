package stripe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blendery/blendery-backend/pkg/config"
)

func TestNewClientValidatesKeyAgainstEnvironment(t *testing.T) {
	ctx := context.Background()

	t.Run("test env accepts test key", func(t *testing.T) {
		client, err := NewClient(ctx, config.StripeConfig{
			APIKey: "sk_test_abc123",
			Secret: "whsec_abc123",
			Env:    "test",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, EnvTest, client.Environment())
		assert.Equal(t, "whsec_abc123", client.SigningSecret())
	})

	t.Run("test env rejects live key", func(t *testing.T) {
		_, err := NewClient(ctx, config.StripeConfig{
			APIKey: "sk_live_abc123",
			Secret: "whsec_abc123",
			Env:    "test",
		}, nil)
		require.Error(t, err)
	})

	t.Run("empty env defaults to test", func(t *testing.T) {
		client, err := NewClient(ctx, config.StripeConfig{
			APIKey: "rk_test_abc123",
			Secret: "whsec_abc123",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, EnvTest, client.Environment())
	})

	t.Run("unknown env rejected", func(t *testing.T) {
		_, err := NewClient(ctx, config.StripeConfig{
			APIKey: "sk_test_abc123",
			Secret: "whsec_abc123",
			Env:    "sandbox",
		}, nil)
		require.Error(t, err)
	})

	t.Run("missing signing secret rejected", func(t *testing.T) {
		_, err := NewClient(ctx, config.StripeConfig{
			APIKey: "sk_test_abc123",
			Env:    "test",
		}, nil)
		require.ErrorIs(t, err, errSecretRequired)
	})
}

func TestNilClientAccessors(t *testing.T) {
	var client *Client
	assert.Nil(t, client.API())
	assert.Empty(t, client.Environment())
	assert.Empty(t, client.SigningSecret())
}
