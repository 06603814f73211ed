package inproc_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/mill/internal/adapters/launcher/inproc"
	"go.trai.ch/mill/internal/core/domain"
)

func TestLauncher_Launch(t *testing.T) {
	l := inproc.New()
	require.True(t, l.Available())

	h, err := l.Launch(t.Context(), domain.Job{Dependency: "A"}, domain.Output{}, func(context.Context) (domain.Handoff, error) {
		return domain.Handoff{Outcome: domain.OutcomeBuilt, Built: true}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeBuilt, h.Outcome)
}

func TestLauncher_LaunchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	called := false
	h, err := inproc.New().Launch(ctx, domain.Job{}, domain.Output{}, func(context.Context) (domain.Handoff, error) {
		called = true
		return domain.Handoff{}, nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, domain.OutcomeFailed, h.Outcome)
	assert.False(t, called)
}
