package repositories

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"dm-relay/domain"
	relayerrors "dm-relay/errors"
)

type IStatsRepository interface {
	EnsureEntry(owner string) error
	RecordSent(owner, correspondent string) error
	RecordReceived(owner, correspondent string) error
	Get(owner string) (domain.UserStats, error)
}

// StatsRepository keeps one "stats:{username}" document per user. Every
// write is a read-modify-write of the whole document, serialized per owner
// by a keyed mutex so that two concurrent relay attempts can never race to
// create duplicate correspondent entries. Counters only ever go up.
type StatsRepository struct {
	db *badger.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewStatsRepository(db *badger.DB) *StatsRepository {
	return &StatsRepository{db: db, locks: make(map[string]*sync.Mutex)}
}

func statsKey(owner string) []byte {
	return []byte("stats:" + owner)
}

// ownerLock returns the mutex dedicated to one owner's document. Locks are
// never released from the map; the set of users is small and bounded by the
// directory.
func (s *StatsRepository) ownerLock(owner string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[owner]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[owner] = lock
	}
	return lock
}

// EnsureEntry idempotently creates an empty stats record for owner.
func (s *StatsRepository) EnsureEntry(owner string) error {
	return s.update(owner, func(_ *domain.UserStats) {})
}

// RecordSent increments owner's sent counter for correspondent, creating
// both the record and the correspondent entry as needed.
func (s *StatsRepository) RecordSent(owner, correspondent string) error {
	return s.update(owner, func(stats *domain.UserStats) {
		stats.IncrementSent(correspondent)
	})
}

// RecordReceived increments owner's received counter for correspondent,
// creating both the record and the correspondent entry as needed.
func (s *StatsRepository) RecordReceived(owner, correspondent string) error {
	return s.update(owner, func(stats *domain.UserStats) {
		stats.IncrementReceived(correspondent)
	})
}

// Get returns the stats record for owner, or ErrStatsNotFound. A record
// with an empty chats list is found, not missing.
func (s *StatsRepository) Get(owner string) (domain.UserStats, error) {
	var stats domain.UserStats
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(statsKey(owner))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &stats)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.UserStats{}, relayerrors.ErrStatsNotFound
	}
	if err != nil {
		return domain.UserStats{}, err
	}
	return stats, nil
}

// update loads (or creates) the owner's document, applies fn and writes it
// back, all under the owner's lock. This is the atomic increment-or-insert
// primitive the ledger contract requires.
func (s *StatsRepository) update(owner string, fn func(*domain.UserStats)) error {
	lock := s.ownerLock(owner)
	lock.Lock()
	defer lock.Unlock()

	return s.db.Update(func(txn *badger.Txn) error {
		stats := domain.NewUserStats(owner)

		item, err := txn.Get(statsKey(owner))
		switch {
		case err == nil:
			if err = item.Value(func(val []byte) error {
				return json.Unmarshal(val, &stats)
			}); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		fn(&stats)

		bytes, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return txn.Set(statsKey(owner), bytes)
	})
}
