package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestAndActor(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = WithRequestID(ctx, " req-1 ")
	ctx = WithActor(ctx, "42", "ADMIN")

	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	id, role := ActorFromContext(ctx)
	assert.Equal(t, "42", id)
	assert.Equal(t, "ADMIN", role)
}
