package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mill/internal/adapters/telemetry"
	"go.trai.ch/mill/internal/core/domain"
	"go.trai.ch/mill/internal/core/ports"
)

func TestNoOp_Record(t *testing.T) {
	rec := telemetry.NewNoOp()
	ctx, v := rec.Record(context.Background(), "task")
	require.NotNil(t, v)

	fromCtx, ok := ports.VertexFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, v, fromCtx)

	n, err := v.Stdout().Write([]byte("dropped"))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	v.Log(domain.LogLevelInfo, "ignored")
	v.Complete(errors.New("ignored"))
	v.Cached()
	assert.NoError(t, rec.Close())
}
