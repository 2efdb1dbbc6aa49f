package inflight

import (
	"context"
	"errors"

	goredis "github.com/redis/go-redis/v9"

	"tastesync/pkg/logging"
	"tastesync/pkg/redis"
)

const cancelChannel = "tastesync:generation:cancel"

// CancelMessage asks every instance to stop a generation.
type CancelMessage struct {
	RequestID string `json:"requestId"`
	UserID    string `json:"userId"`
}

// Outcome reports what a successful Cancel did.
type Outcome int

const (
	// Cancelled means the generation ran on this instance and was stopped.
	Cancelled Outcome = iota
	// Forwarded means the id was unknown here and the cancel was published
	// to the other instances. Whether any of them held it is not known.
	Forwarded
)

// Canceller cancels generations. Local cancels on this instance; *Broadcaster
// also fans the request out to other instances.
type Canceller interface {
	Cancel(ctx context.Context, requestID, owner string) (Outcome, error)
}

// Local adapts a Registry to Canceller for single-instance deployments.
type Local struct{ *Registry }

func (l Local) Cancel(_ context.Context, requestID, owner string) (Outcome, error) {
	return Cancelled, l.Registry.Cancel(requestID, owner)
}

type Broadcaster struct {
	registry *Registry
	pubsub   *redis.TypedPubSub[CancelMessage]
	logger   logging.Logger
}

func NewBroadcaster(registry *Registry, client goredis.UniversalClient, logger logging.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		pubsub:   redis.NewTypedPubSub[CancelMessage](client, logger),
		logger:   logger,
	}
}

// Cancel stops the generation locally when it runs here, otherwise publishes
// the request for the instance that owns it. Ownership is checked where the
// generation runs.
func (b *Broadcaster) Cancel(ctx context.Context, requestID, owner string) (Outcome, error) {
	err := b.registry.Cancel(requestID, owner)
	if !errors.Is(err, ErrUnknownRequest) {
		return Cancelled, err
	}
	return Forwarded, b.pubsub.Publish(ctx, cancelChannel, CancelMessage{RequestID: requestID, UserID: owner})
}

// Start listens for remote cancels until ctx is done. ready may be nil.
func (b *Broadcaster) Start(ctx context.Context, ready chan<- struct{}) error {
	return b.pubsub.Subscribe(ctx, cancelChannel, ready, func(msg CancelMessage) {
		err := b.registry.Cancel(msg.RequestID, msg.UserID)
		switch {
		case err == nil:
			b.logger.WithField("request_id", msg.RequestID).Info("Cancelled generation on remote request")
		case errors.Is(err, ErrNotOwner):
			b.logger.WithFields(logging.Fields{
				"request_id": msg.RequestID,
				"user_id":    msg.UserID,
			}).Warn("Ignoring remote cancel from non-owner")
		}
	})
}
