// Package eventstreamutils is the event stream utility package
package eventstreamutils

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/recall/pkg/eventstream"
	"github.com/papercomputeco/recall/pkg/eventstream/kafka"
	"github.com/papercomputeco/recall/pkg/eventstream/nats"
	"github.com/papercomputeco/recall/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	ProviderType string
	Brokers      string
	Topic        string
	NATSURL      string
	Logger       *slog.Logger
}

func NewPublisher(ctx context.Context, o *NewPublisherOpts) (eventstream.Publisher, error) {
	switch o.ProviderType {
	case "nop", "none", "":
		return nop.NewPublisher(), nil
	case "kafka":
		return kafka.NewPublisher(kafka.Config{Brokers: o.Brokers, Topic: o.Topic})
	case "nats":
		return nats.NewPublisher(ctx, nats.Config{URL: o.NATSURL, SubjectPrefix: o.Topic}, o.Logger)
	default:
		return nil, fmt.Errorf("unsupported events provider: %s", o.ProviderType)
	}
}
