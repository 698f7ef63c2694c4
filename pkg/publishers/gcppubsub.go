package publishers

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// pubsubTopic publishes one message and waits for the server id.
type pubsubTopic interface {
	Publish(ctx context.Context, msg *pubsub.Message) (string, error)
	Stop()
}

type gcpTopic struct {
	topic *pubsub.Topic
}

func (t gcpTopic) Publish(ctx context.Context, msg *pubsub.Message) (string, error) {
	return t.topic.Publish(ctx, msg).Get(ctx)
}

func (t gcpTopic) Stop() { t.topic.Stop() }

type gcpPubSubSender struct {
	topic pubsubTopic
	close func() error
	log   Logger
}

func newGCPPubSubSender(ctx context.Context, cfg *GCPConfig, log Logger) (queueSender, error) {
	if cfg == nil {
		return nil, fmt.Errorf("gcp queue configuration is missing")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := pubsub.NewClient(ctx, cfg.ProjectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	return &gcpPubSubSender{
		topic: gcpTopic{topic: client.Topic(cfg.Topic)},
		close: client.Close,
		log:   ensureLogger(log),
	}, nil
}

func (s *gcpPubSubSender) Send(ctx context.Context, evt Event) error {
	msg, err := encodeEvent(evt)
	if err != nil {
		return err
	}
	id, err := s.topic.Publish(ctx, &pubsub.Message{Data: msg.body, Attributes: msg.attrs})
	if err != nil {
		return fmt.Errorf("send message to pubsub: %w", err)
	}
	logDelivery(s.log, "gcp_pubsub", evt, id)
	return nil
}

// Close flushes pending messages, then releases the client.
func (s *gcpPubSubSender) Close() error {
	s.topic.Stop()
	if s.close == nil {
		return nil
	}
	return s.close()
}
