package controller

import (
	"testing"

	"github.com/sharetube/jam/internal/service/jam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queued(updates ...jam.Update) chan outbound {
	out := make(chan outbound, len(updates)+1)
	for _, update := range updates {
		out <- outbound{update: &update}
	}

	return out
}

func TestDrainQueuedMergesUpdates(t *testing.T) {
	position := 0.5
	users := []jam.User{{Id: "u1", Name: "ann"}}
	out := queued(jam.Update{Users: &users}, jam.ErrorUpdate())

	update, next := drainQueued(jam.Update{Position: &position}, out)
	assert.Nil(t, next)
	assert.Equal(t, &position, update.Position)
	assert.Equal(t, &users, update.Users)
	assert.Empty(t, out)
}

func TestDrainQueuedKeepsSearchRepliesApart(t *testing.T) {
	position := 0.5
	out := queued(
		jam.Update{Position: &position},
		jam.Update{Search: &jam.Search{SearchId: "s-2"}},
		jam.ErrorUpdate(),
	)

	update, next := drainQueued(jam.Update{Search: &jam.Search{SearchId: "s-1"}}, out)
	assert.Equal(t, "s-1", update.Search.SearchId)
	assert.Equal(t, &position, update.Position)

	require.NotNil(t, next)
	require.NotNil(t, next.update)
	assert.Equal(t, "s-2", next.update.Search.SearchId)
	assert.Len(t, out, 1)
}

func TestDrainQueuedStopsAtClose(t *testing.T) {
	out := queued(jam.ErrorUpdate())
	out <- outbound{close: &closeFrame{code: closeKicked, reason: "kicked"}}

	_, next := drainQueued(jam.ErrorUpdate(), out)
	require.NotNil(t, next)
	require.NotNil(t, next.close)
	assert.Equal(t, closeKicked, next.close.code)
	assert.Empty(t, out)
}
