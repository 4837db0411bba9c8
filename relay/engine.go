// Package relay routes direct messages between connected users. It owns
// the per-connection lifecycle (register, backlog replay, receive loop,
// unregister) but contains no transport, storage or UI logic.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"dm-relay/contract"
	"dm-relay/domain"
	"dm-relay/repositories"
)

var validate = validator.New()

type Engine struct {
	log         *slog.Logger
	registry    contract.IRegistry
	messages    repositories.IMessageRepository
	stats       repositories.IStatsRepository
	sendTimeout time.Duration
}

func NewEngine(log *slog.Logger, registry contract.IRegistry,
	messages repositories.IMessageRepository, stats repositories.IStatsRepository,
	sendTimeout time.Duration) *Engine {
	return &Engine{
		log:         log,
		registry:    registry,
		messages:    messages,
		stats:       stats,
		sendTimeout: sendTimeout,
	}
}

// HandleConnection drives one connection from registration to close. It
// blocks until the receiver reports closure or ctx is canceled, then
// removes the presence entry. A connect is rejected (error returned before
// any message is processed) only when storage is unavailable.
func (e *Engine) HandleConnection(ctx context.Context, username string,
	sink contract.MessageSink, receiver contract.Receiver) error {
	e.registry.Register(username, sink)
	defer e.registry.Unregister(username, sink)

	if err := e.stats.EnsureEntry(username); err != nil {
		return fmt.Errorf("stats entry for %s: %w", username, err)
	}
	if err := e.replayBacklog(ctx, username, sink); err != nil {
		return fmt.Errorf("backlog replay for %s: %w", username, err)
	}

	e.log.Info("user connected", "username", username)

	for {
		payload, err := receiver.Receive(ctx)
		if err != nil {
			e.log.Info("user disconnected", "username", username, "reason", err)
			return nil
		}
		e.relayInbound(ctx, username, sink, payload)
	}
}

// replayBacklog streams every stored message involving username to the new
// connection. The replayed view always reports receive_status=true: anything
// replayed to you was, by definition, just delivered. The stored record
// keeps its original flag.
func (e *Engine) replayBacklog(ctx context.Context, username string, sink contract.MessageSink) error {
	backlog, err := e.messages.MessagesFor(username)
	if err != nil {
		return err
	}
	for _, message := range backlog {
		message.Delivered = true
		if err := e.consumeWithTimeout(ctx, sink, message); err != nil {
			return err
		}
	}
	return nil
}

// relayInbound processes a single inbound payload. Failures are contained
// to this one event: a malformed payload is dropped and logged, a
// persistence failure is surfaced to the sender when the sink supports it.
// The connection stays open either way.
func (e *Engine) relayInbound(ctx context.Context, sender string,
	senderSink contract.MessageSink, payload []byte) {
	var wire domain.WireMessage
	if err := json.Unmarshal(payload, &wire); err != nil {
		e.log.Warn("dropping malformed payload", "username", sender, "error", err)
		return
	}
	if err := validate.Struct(wire); err != nil {
		e.log.Warn("dropping invalid payload", "username", sender, "error", err)
		return
	}

	recipientSink, online := e.registry.Lookup(wire.Receiver)
	message := domain.NewMessage(sender, wire.Receiver, wire.Content, online)

	if online {
		if err := e.consumeWithTimeout(ctx, recipientSink, message); err != nil {
			// The recipient was present at send time, so the attempt keeps
			// delivered=true; a stuck peer must not stall the sender.
			e.log.Warn("live delivery failed",
				"sender", sender, "receiver", wire.Receiver, "error", err)
		}
	}

	// Total recall: every attempt is persisted, live or queued.
	if err := e.messages.StoreMessage(message); err != nil {
		e.log.Error("message persistence failed",
			"sender", sender, "receiver", wire.Receiver, "error", err)
		e.reportFailure(ctx, senderSink, "message could not be stored")
		return
	}

	// Stats count attempts, not confirmed deliveries.
	if err := e.stats.RecordSent(sender, wire.Receiver); err != nil {
		e.log.Error("stats update failed", "owner", sender, "error", err)
	}
	if err := e.stats.RecordReceived(wire.Receiver, sender); err != nil {
		e.log.Error("stats update failed", "owner", wire.Receiver, "error", err)
	}
}

func (e *Engine) consumeWithTimeout(ctx context.Context, sink contract.MessageSink, message domain.Message) error {
	deliveryCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	defer cancel()
	return sink.Consume(deliveryCtx, message)
}

func (e *Engine) reportFailure(ctx context.Context, sink contract.MessageSink, detail string) {
	errorSink, ok := sink.(contract.ErrorSink)
	if !ok {
		return
	}
	if err := errorSink.ConsumeError(ctx, detail); err != nil {
		e.log.Warn("could not surface failure to sender", "error", err)
	}
}
