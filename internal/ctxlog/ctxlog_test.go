package ctxlog

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromContext_ReturnsEmbeddedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	ctx := WithLogger(context.Background(), logger)
	FromContext(ctx).Info("hello", "segment", 1)

	require.Contains(t, buf.String(), "msg=hello")
	require.Contains(t, buf.String(), "segment=1")
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	require.Same(t, slog.Default(), FromContext(context.Background()))
}

func TestDiscard(t *testing.T) {
	ctx := Discard(context.Background())
	require.NotSame(t, slog.Default(), FromContext(ctx))
}

func TestWith_PropagatesAttributes(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), slog.New(slog.NewTextHandler(&buf, nil)))

	ctx, logger := With(ctx, "segment", 3)
	logger.Info("direct")
	FromContext(ctx).Info("via context")

	require.Contains(t, buf.String(), "msg=direct segment=3")
	require.Contains(t, buf.String(), `msg="via context" segment=3`)
}
