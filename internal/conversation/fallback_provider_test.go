package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFallbackUsesPrimaryFirst(t *testing.T) {
	primary := &scriptedProvider{replies: []Reply{{Text: "primary"}}}
	fallback := &scriptedProvider{replies: []Reply{{Text: "fallback"}}}
	p := NewFallbackProvider(primary, fallback, nil)

	reply, err := p.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "x"}}})
	require.NoError(t, err)
	assert.Equal(t, "primary", reply.Text)
	assert.Empty(t, fallback.calls)
}

func TestFallbackOnPrimaryFailure(t *testing.T) {
	primary := &scriptedProvider{err: errors.New("down")}
	fallback := &scriptedProvider{replies: []Reply{{Text: "fallback"}}}
	p := NewFallbackProvider(primary, fallback, nil)

	reply, err := p.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "x"}}})
	require.NoError(t, err)
	assert.Equal(t, "fallback", reply.Text)
	assert.Len(t, primary.calls, 1)
	assert.Len(t, fallback.calls, 1)
}

func TestFallbackBothFail(t *testing.T) {
	primary := &scriptedProvider{err: errors.New("down")}
	fallback := &scriptedProvider{err: errors.New("also down")}
	p := NewFallbackProvider(primary, fallback, nil)

	_, err := p.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "x"}}})
	assert.Error(t, err)
}

func TestFallbackWithoutSecondary(t *testing.T) {
	primary := &scriptedProvider{err: errors.New("down")}
	p := NewFallbackProvider(primary, nil, nil)

	_, err := p.Complete(context.Background(), Request{Turns: []Turn{{Role: RoleUser, Content: "x"}}})
	assert.Error(t, err)
}
