package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"dm-relay/domain"
)

type fakeSink struct {
	name string
}

func (f *fakeSink) Consume(_ context.Context, _ domain.Message) error {
	return nil
}

func TestRegistry_Register_And_Lookup(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := &fakeSink{name: "alice"}

	// Given nobody is online
	_, ok := registry.Lookup("alice")
	req.False(ok)
	req.Zero(registry.Online())

	// When alice registers
	registry.Register("alice", sink)

	// Then she is reachable
	found, ok := registry.Lookup("alice")
	req.True(ok)
	req.Same(sink, found.(*fakeSink))
	req.Equal(1, registry.Online())
}

func TestRegistry_Register_Last_Connect_Wins(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	first := &fakeSink{name: "first"}
	second := &fakeSink{name: "second"}

	// Given alice is online through a first connection
	registry.Register("alice", first)

	// When she connects again
	registry.Register("alice", second)

	// Then only the second connection is reachable
	found, ok := registry.Lookup("alice")
	req.True(ok)
	req.Same(second, found.(*fakeSink))
	req.Equal(1, registry.Online())
}

func TestRegistry_Unregister_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	sink := &fakeSink{}

	registry.Register("alice", sink)
	registry.Unregister("alice", sink)
	registry.Unregister("alice", sink)

	_, ok := registry.Lookup("alice")
	req.False(ok)
	req.Zero(registry.Online())
}

func TestRegistry_Unregister_Ignores_Stale_Connection(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	old := &fakeSink{name: "old"}
	current := &fakeSink{name: "current"}

	// Given alice reconnected and the new binding replaced the old one
	registry.Register("alice", old)
	registry.Register("alice", current)

	// When the old connection's task exits and unregisters
	registry.Unregister("alice", old)

	// Then the new binding survives
	found, ok := registry.Lookup("alice")
	req.True(ok)
	req.Same(current, found.(*fakeSink))
}
