package tracing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnsureMintsWhenAbsent(t *testing.T) {
	ctx, rid := Ensure(context.Background())

	assert.True(t, strings.HasPrefix(rid.String(), "req_"))

	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, rid, got)
}

func TestEnsureReusesExisting(t *testing.T) {
	ctx, first := Ensure(context.Background())
	ctx2, second := Ensure(ctx)

	assert.Equal(t, first, second)
	assert.Equal(t, ctx, ctx2)
}
