package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"dm-relay/domain"
)

type IMessageRepository interface {
	StoreMessage(message domain.Message) error
	MessagesFor(username string) ([]domain.Message, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// storedMessage is the on-disk document. It keeps the original delivered
// flag of the relay attempt for audit, even though backlog replay reports
// every message as delivered.
type storedMessage struct {
	ID            string    `json:"id"`
	Sender        string    `json:"sender"`
	Receiver      string    `json:"receiver"`
	Content       string    `json:"content"`
	Timestamp     time.Time `json:"timestamp"`
	ReceiveStatus bool      `json:"receive_status"`
}

// StoreMessage persists one message record in BadgerDB.
// The key is formatted as "msg:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
func (m MessageRepository) StoreMessage(message domain.Message) error {
	key := fmt.Sprintf("msg:%019d:%s",
		message.Timestamp.UnixNano(),
		message.ID,
	)
	bytes, err := json.Marshal(fromDomainMessage(message))
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), bytes)
	})
}

// MessagesFor retrieves every message where username is sender or receiver.
// The scan walks the whole "msg:" prefix and filters by participant, the
// document-collection semantics of the original store. Thanks to the padded
// timestamp in the key, results are returned in timestamp order.
func (m MessageRepository) MessagesFor(username string) ([]domain.Message, error) {
	var byteMessages [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(value []byte) error {
				byteMessages = append(byteMessages, append([]byte(nil), value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var messages []domain.Message
	for _, b := range byteMessages {
		var stored storedMessage
		if err = json.Unmarshal(b, &stored); err != nil {
			return nil, err
		}
		if stored.Sender != username && stored.Receiver != username {
			continue
		}
		message, err := toDomainMessage(stored)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func fromDomainMessage(message domain.Message) storedMessage {
	return storedMessage{
		ID:            message.ID.String(),
		Sender:        message.Sender,
		Receiver:      message.Receiver,
		Content:       message.Content,
		Timestamp:     message.Timestamp.UTC(),
		ReceiveStatus: message.Delivered,
	}
}

func toDomainMessage(stored storedMessage) (domain.Message, error) {
	parsedID, err := uuid.Parse(stored.ID)
	if err != nil {
		return domain.Message{}, err
	}
	return domain.Message{
		ID:        parsedID,
		Sender:    stored.Sender,
		Receiver:  stored.Receiver,
		Content:   stored.Content,
		Timestamp: stored.Timestamp.UTC(),
		Delivered: stored.ReceiveStatus,
	}, nil
}
