package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"gitlab.com/yelinaung/tripfund-bot/internal/logger"
	"gitlab.com/yelinaung/tripfund-bot/internal/models"
)

// StreamName is the JetStream stream holding loan events.
const StreamName = "TRIPFUND_LOANS"

const publishTimeout = 5 * time.Second

// streamPublisher is the part of jetstream.JetStream the publisher uses.
type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSPublisher publishes events to JetStream subjects "<prefix>.completed" and "<prefix>.dismissed".
// Message IDs are the journey or offer ID so redelivered publishes are deduplicated by the server.
type NATSPublisher struct {
	js     streamPublisher
	prefix string
	close  func()
}

// ConnectNATS dials url, ensures the stream exists and returns a publisher.
func ConnectNATS(ctx context.Context, url, prefix string) (*NATSPublisher, error) {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		return nil, errors.New("subject prefix is required")
	}

	nc, err := nats.Connect(url,
		nats.Name("tripfund-bot"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Log.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Log.Info().Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	if _, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       StreamName,
		Subjects:   []string{prefix + ".>"},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     30 * 24 * time.Hour,
		Duplicates: 10 * time.Minute,
	}); err != nil {
		nc.Close()
		return nil, fmt.Errorf("create stream %s: %w", StreamName, err)
	}

	return &NATSPublisher{js: js, prefix: prefix, close: nc.Close}, nil
}

// Subject returns the subject events of kind are published on.
func (p *NATSPublisher) Subject(kind string) string {
	return p.prefix + "." + kind
}

// PublishCompleted publishes a disbursement.
func (p *NATSPublisher) PublishCompleted(ctx context.Context, userID int64, ev models.CompletionEvent) error {
	data, err := encode(completedPayload(userID, ev))
	if err != nil {
		return err
	}
	return p.publish(ctx, KindCompleted, ev.JourneyID, data)
}

// PublishDismissed publishes a saved offer.
func (p *NATSPublisher) PublishDismissed(ctx context.Context, userID int64, offer models.SavedOffer) error {
	data, err := encode(dismissedPayload(userID, offer))
	if err != nil {
		return err
	}
	return p.publish(ctx, KindDismissed, offer.ID, data)
}

func (p *NATSPublisher) publish(ctx context.Context, kind, msgID string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	subject := p.Subject(kind)
	ack, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(kind+":"+msgID))
	if err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	logger.Log.Debug().
		Str("subject", subject).
		Uint64("seq", ack.Sequence).
		Bool("duplicate", ack.Duplicate).
		Msg("Published loan event")
	return nil
}

// Close closes the NATS connection.
func (p *NATSPublisher) Close() error {
	if p.close != nil {
		p.close()
	}
	return nil
}
