package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cohortdata/cohort/pkg/errors"
)

func TestInitDisabledIsNoop(t *testing.T) {
	shutdown, err := Init(false)
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	// spans still work against the no-op tracer
	ctx, span := StartSpan(context.Background(), "ingest.load")
	require.NotNil(t, ctx)
	span.SetAttribute("datafile", "responses.csv")
	span.SetAttribute("columns", 12)
	span.End()
}

func TestTracePhasePropagatesError(t *testing.T) {
	wantErr := errors.New(errors.ErrorTypeData, "truncated file")

	err := TracePhase(context.Background(), "load", func(ctx context.Context) error {
		return wantErr
	})
	assert.Equal(t, wantErr, err)

	err = TracePhase(context.Background(), "assemble", func(ctx context.Context) error {
		return nil
	})
	assert.NoError(t, err)
}
