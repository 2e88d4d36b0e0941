package observability

import (
	"context"
	"testing"

	"github.com/example/ec-inventory/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_DisabledIsNoop(t *testing.T) {
	ctx := context.Background()

	shutdown, err := Setup(ctx, config.OtelConfig{})

	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(ctx))
}
