package notify

import (
	"context"
	"fmt"

	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// WebhookSink posts changes as CloudEvents over HTTP.
type WebhookSink struct {
	endpoint string
	client   cloudevents.Client
}

func NewWebhookSink(endpoint string) (*WebhookSink, error) {
	c, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, err
	}
	return &WebhookSink{endpoint: endpoint, client: c}, nil
}

func (s *WebhookSink) Name() string { return "webhook:" + s.endpoint }

func (s *WebhookSink) Send(ctx context.Context, change Change) error {
	event := cloudevents.NewEvent()
	event.SetID(change.ID)
	event.SetTime(change.Time)
	event.SetSource(EventSource)
	event.SetType(EventType)
	if err := event.SetData(cloudevents.ApplicationJSON, change); err != nil {
		return err
	}

	ctxWithTarget := cloudevents.ContextWithTarget(ctx, s.endpoint)
	result := s.client.Send(ctxWithTarget, event)
	if !cloudevents.IsACK(result) {
		return fmt.Errorf("send event to %s: %w", s.endpoint, result)
	}
	return nil
}
