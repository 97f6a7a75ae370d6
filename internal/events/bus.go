// Vireo - Short-Video Platform Server
// Copyright 2026 Vireo Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/vireo-app/vireo

package events

import (
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmnats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
)

// Bus bundles a publisher/subscriber pair over one transport.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	closers []func() error
}

// Close releases the transport.
func (b *Bus) Close() error {
	var firstErr error
	for _, c := range b.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NewChannelBus creates an in-process bus. Messages are delivered to
// subscribers within the same process only; suitable for single-node
// deployments and tests.
func NewChannelBus(logger watermill.LoggerAdapter) *Bus {
	ch := gochannel.NewGoChannel(gochannel.Config{
		// Sessions publish fire-and-forget; a slow handler must not
		// stall them.
		OutputChannelBuffer: 256,
	}, logger)
	return &Bus{
		Publisher:  ch,
		Subscriber: ch,
		closers:    []func() error{ch.Close},
	}
}

// NATSConfig holds the JetStream transport settings.
type NATSConfig struct {
	URL           string
	QueueGroup    string
	AckWait       time.Duration
	MaxReconnects int
	ReconnectWait time.Duration
}

// NewNATSBus creates a JetStream-backed bus. The publisher tracks message
// IDs (Nats-Msg-Id) so the stream's duplicate window drops republished
// events.
func NewNATSBus(cfg NATSConfig, logger watermill.LoggerAdapter) (*Bus, error) {
	if cfg.AckWait <= 0 {
		cfg.AckWait = 30 * time.Second
	}
	if cfg.MaxReconnects == 0 {
		cfg.MaxReconnects = -1
	}
	if cfg.ReconnectWait <= 0 {
		cfg.ReconnectWait = 2 * time.Second
	}
	if cfg.QueueGroup == "" {
		cfg.QueueGroup = "vireo-feedback"
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	pub, err := wmnats.NewPublisher(wmnats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmnats.NATSMarshaler{},
		JetStream: wmnats.JetStreamConfig{
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("create NATS publisher: %w", err)
	}

	sub, err := wmnats.NewSubscriber(wmnats.SubscriberConfig{
		URL:              cfg.URL,
		NatsOptions:      natsOpts,
		Unmarshaler:      &wmnats.NATSMarshaler{},
		QueueGroupPrefix: cfg.QueueGroup,
		AckWaitTimeout:   cfg.AckWait,
		JetStream: wmnats.JetStreamConfig{
			AutoProvision: false,
			DurablePrefix: cfg.QueueGroup,
		},
	}, logger)
	if err != nil {
		_ = pub.Close()
		return nil, fmt.Errorf("create NATS subscriber: %w", err)
	}

	return &Bus{
		Publisher:  pub,
		Subscriber: sub,
		closers:    []func() error{sub.Close, pub.Close},
	}, nil
}
