package live

import (
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/targoninc/venel-api/domain"
)

func newTestConnection(identity domain.Identity) *Connection {
	conn := NewConnection(slog.Default(), &fakeSocket{}, identity, 8)
	conn.markOpen()
	return conn
}

func TestPresence_Add_And_Remove(t *testing.T) {
	req := require.New(t)
	presence := NewPresence()
	conn := newTestConnection(domain.Identity{ID: uuid.New(), Username: "alice"})

	// Given an empty presence set
	req.Zero(presence.Len())

	// When a connection is added
	presence.Add(conn)

	// Then it shows up in the snapshot
	req.Equal(1, presence.Len())
	req.Contains(presence.Snapshot(), conn)

	// When it is removed
	presence.Remove(conn)

	// Then the set is empty again
	req.Zero(presence.Len())
	req.Empty(presence.Snapshot())
}

func TestPresence_Multiple_Connections_Per_Identity(t *testing.T) {
	req := require.New(t)
	presence := NewPresence()
	userID := uuid.New()

	// Given one identity on two devices
	first := newTestConnection(domain.Identity{ID: userID, Username: "alice"})
	second := newTestConnection(domain.Identity{ID: userID, Username: "alice"})

	// When both connect
	presence.Add(first)
	presence.Add(second)

	// Then both connections are present
	req.Equal(2, presence.Len())
}

func TestPresence_Snapshot_Is_Stable_Under_Concurrent_Mutation(t *testing.T) {
	req := require.New(t)
	presence := NewPresence()
	for i := 0; i < 50; i++ {
		presence.Add(newTestConnection(domain.Identity{ID: uuid.New()}))
	}

	snapshot := presence.Snapshot()

	// Concurrent removals must not affect an already-taken snapshot.
	var wg sync.WaitGroup
	for _, conn := range snapshot {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			presence.Remove(c)
		}(conn)
	}
	wg.Wait()

	req.Len(snapshot, 50)
	req.Zero(presence.Len())
}

func TestPresence_Drain_Closes_Everything(t *testing.T) {
	req := require.New(t)
	presence := NewPresence()
	conns := make([]*Connection, 0, 3)
	for i := 0; i < 3; i++ {
		conn := newTestConnection(domain.Identity{ID: uuid.New()})
		conns = append(conns, conn)
		presence.Add(conn)
	}

	presence.Drain()

	req.Zero(presence.Len())
	for _, conn := range conns {
		req.False(conn.IsOpen())
	}
}
