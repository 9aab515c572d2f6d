package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubscribeReceivesLiveEvents(t *testing.T) {
	bus := NewBus()
	updates, cancel, backlog := bus.Subscribe()
	defer cancel()
	require.Empty(t, backlog)

	bus.Emit("cdp_opened", map[string]string{"borrower": "alice"})

	select {
	case ev := <-updates:
		require.Equal(t, "cdp_opened", ev.Type)
		require.Equal(t, "alice", ev.Attributes["borrower"])
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestSubscribeReplaysBacklog(t *testing.T) {
	bus := NewBus()
	bus.Emit("cdp_opened", map[string]string{"borrower": "alice"})
	bus.Emit("cdp_modified", map[string]string{"borrower": "alice"})

	_, cancel, backlog := bus.Subscribe()
	defer cancel()

	require.Len(t, backlog, 2)
	require.Equal(t, "cdp_opened", backlog[0].Type)
	require.Equal(t, "cdp_modified", backlog[1].Type)
}

func TestCancelClosesChannel(t *testing.T) {
	bus := NewBus()
	updates, cancel, _ := bus.Subscribe()
	cancel()

	_, ok := <-updates
	require.False(t, ok)
}
