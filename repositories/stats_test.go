package repositories

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"dm-relay/domain"
	relayerrors "dm-relay/errors"
)

func Test_EnsureEntry_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	repository := NewStatsRepository(newTestDB(t))

	// Given no record exists
	_, err := repository.Get("alice")
	req.ErrorIs(err, relayerrors.ErrStatsNotFound)

	// When the entry is ensured twice
	req.NoError(repository.EnsureEntry("alice"))
	req.NoError(repository.EnsureEntry("alice"))

	// Then exactly one empty record exists
	stats, err := repository.Get("alice")
	req.NoError(err)
	req.Equal("alice", stats.Username)
	req.Empty(stats.Chats)
}

func Test_EnsureEntry_Keeps_Existing_Counters(t *testing.T) {
	req := require.New(t)
	repository := NewStatsRepository(newTestDB(t))

	req.NoError(repository.RecordSent("alice", "bob"))

	// A reconnect must not reset anything
	req.NoError(repository.EnsureEntry("alice"))

	stats, err := repository.Get("alice")
	req.NoError(err)
	req.Equal([]domain.ChatStat{{ChatUsername: "bob", MessagesSent: 1}}, stats.Chats)
}

func Test_Record_Creates_Correspondent_Entry_Lazily(t *testing.T) {
	req := require.New(t)
	repository := NewStatsRepository(newTestDB(t))

	// A received-only entry exists with sent implicitly zero
	req.NoError(repository.RecordReceived("bob", "alice"))

	stats, err := repository.Get("bob")
	req.NoError(err)
	req.Equal([]domain.ChatStat{{ChatUsername: "alice", MessagesReceived: 1}}, stats.Chats)

	// The two counters of one correspondent move independently
	req.NoError(repository.RecordSent("bob", "alice"))
	stats, err = repository.Get("bob")
	req.NoError(err)
	req.Equal([]domain.ChatStat{{ChatUsername: "alice", MessagesSent: 1, MessagesReceived: 1}}, stats.Chats)
}

func Test_Concurrent_Records_Never_Duplicate_A_Correspondent(t *testing.T) {
	req := require.New(t)
	repository := NewStatsRepository(newTestDB(t))

	// When many goroutines hammer the same owner/correspondent pair
	const attempts = 50
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, repository.RecordSent("alice", "bob"))
		}()
	}
	wg.Wait()

	// Then there is a single entry holding the exact count
	stats, err := repository.Get("alice")
	req.NoError(err)
	req.Equal([]domain.ChatStat{{ChatUsername: "bob", MessagesSent: attempts}}, stats.Chats)
}

func Test_Stats_Track_Multiple_Correspondents(t *testing.T) {
	req := require.New(t)
	repository := NewStatsRepository(newTestDB(t))

	req.NoError(repository.RecordSent("alice", "bob"))
	req.NoError(repository.RecordSent("alice", "carol"))
	req.NoError(repository.RecordSent("alice", "bob"))

	stats, err := repository.Get("alice")
	req.NoError(err)
	req.Equal([]domain.ChatStat{
		{ChatUsername: "bob", MessagesSent: 2},
		{ChatUsername: "carol", MessagesSent: 1},
	}, stats.Chats)
}
