package publishers

import (
	"context"
	"encoding/json"
	"fmt"
)

// queueSender delivers one encoded event to a cloud queue or topic.
type queueSender interface {
	Send(ctx context.Context, evt Event) error
	Close() error
}

// queueMessage is an event ready for any queue: JSON body plus string attributes.
type queueMessage struct {
	body  []byte
	attrs map[string]string
}

func encodeEvent(evt Event) (queueMessage, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return queueMessage{}, fmt.Errorf("marshal event: %w", err)
	}
	return queueMessage{
		body:  body,
		attrs: map[string]string{"source": evt.Source, "event_type": evt.Type},
	}, nil
}

func logDelivery(log Logger, sink string, evt Event, messageID string) {
	log.DebugObj(sink+" publisher delivered event", "publisher_"+sink+"_delivery", map[string]any{
		"article_id": evt.ID,
		"source":     evt.Source,
		"message_id": messageID,
	})
}

type senderFactory func(ctx context.Context, q *QueueConfig, log Logger) (queueSender, error)

var queueSenders = map[string]senderFactory{
	QueueProviderAWSSQS: func(ctx context.Context, q *QueueConfig, log Logger) (queueSender, error) {
		return newAWSSQSSender(ctx, q.SQS, log)
	},
	QueueProviderAWSSNS: func(ctx context.Context, q *QueueConfig, log Logger) (queueSender, error) {
		return newAWSSNSSender(ctx, q.SNS, log)
	},
	QueueProviderGCP: func(ctx context.Context, q *QueueConfig, log Logger) (queueSender, error) {
		return newGCPPubSubSender(ctx, q.GCP, log)
	},
}

// queuePublisher adapts a queueSender to Publisher.
type queuePublisher struct {
	id       string
	provider string
	sender   queueSender
}

func newQueuePublisher(ctx context.Context, cfg Config, log Logger) (Publisher, error) {
	if cfg.Queue == nil {
		return nil, fmt.Errorf("publisher %q missing queue configuration", cfg.ID)
	}
	factory, ok := queueSenders[cfg.Queue.Provider]
	if !ok {
		return nil, fmt.Errorf("queue provider %q is not supported", cfg.Queue.Provider)
	}
	sender, err := factory(ctx, cfg.Queue, log)
	if err != nil {
		return nil, err
	}
	return &queuePublisher{id: cfg.ID, provider: cfg.Queue.Provider, sender: sender}, nil
}

func (p *queuePublisher) ID() string   { return p.id }
func (p *queuePublisher) Type() string { return TypeQueue }
func (p *queuePublisher) Close() error { return p.sender.Close() }

func (p *queuePublisher) Publish(ctx context.Context, evt Event) error {
	if err := p.sender.Send(ctx, evt); err != nil {
		return fmt.Errorf("%s: %w", p.provider, err)
	}
	return nil
}
