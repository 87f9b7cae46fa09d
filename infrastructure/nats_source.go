package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"coinledger/service"

	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
)

// SignatureHeader carries the terminal's HMAC on queued messages
const SignatureHeader = "X-Signature"

// NATSSource pulls terminal events from a JetStream stream through a durable
// pull consumer
type NATSSource struct {
	servers              string
	stream               string
	subject              string
	nc                   *nats.Conn
	js                   nats.JetStreamContext
	sub                  *nats.Subscription
	reconnectDelay       time.Duration
	maxReconnectAttempts int
}

// NewNATSSource creates a source for subject on stream. Call Connect before use.
func NewNATSSource(servers, stream, subject string) *NATSSource {
	return &NATSSource{
		servers:              servers,
		stream:               stream,
		subject:              subject,
		reconnectDelay:       2 * time.Second,
		maxReconnectAttempts: 10,
	}
}

// Connect establishes a connection, ensures the stream and binds the consumer
func (s *NATSSource) Connect(ctx context.Context) error {
	opts := []nats.Option{
		nats.Name("coinledger"),
		nats.MaxReconnects(s.maxReconnectAttempts),
		nats.ReconnectWait(s.reconnectDelay),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				log.WithError(err).Error("NATS disconnected with error")
			} else {
				log.Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(s.servers, opts...)
	if err != nil {
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream(nats.Context(ctx))
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	s.nc = nc
	s.js = js

	if err := s.ensureStream(); err != nil {
		nc.Close()
		return err
	}

	sub, err := js.PullSubscribe(s.subject, s.consumerName(),
		nats.BindStream(s.stream),
		nats.AckExplicit(),
		nats.MaxDeliver(5),
		nats.AckWait(30*time.Second),
	)
	if err != nil {
		nc.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", s.subject, err)
	}
	s.sub = sub

	log.WithFields(log.Fields{
		"servers": s.servers,
		"stream":  s.stream,
		"subject": s.subject,
	}).Info("Connected to NATS terminal queue")
	return nil
}

func (s *NATSSource) consumerName() string {
	sanitized := strings.ReplaceAll(s.subject, ".", "_")
	sanitized = strings.ReplaceAll(sanitized, "*", "wildcard")
	sanitized = strings.ReplaceAll(sanitized, ">", "all")
	return "coinledger-" + sanitized
}

func (s *NATSSource) ensureStream() error {
	if _, err := s.js.StreamInfo(s.stream); err == nil {
		return nil
	}

	_, err := s.js.AddStream(&nats.StreamConfig{
		Name:        s.stream,
		Subjects:    []string{s.subject},
		Retention:   nats.WorkQueuePolicy,
		MaxAge:      7 * 24 * time.Hour,
		Storage:     nats.FileStorage,
		Replicas:    1,
		Description: "Payment terminal transactions",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", s.stream, err)
	}

	log.WithFields(log.Fields{
		"stream":  s.stream,
		"subject": s.subject,
	}).Info("Created JetStream stream")
	return nil
}

// Ping checks the connection is up and the server answers
func (s *NATSSource) Ping(ctx context.Context) error {
	if s.nc == nil || !s.nc.IsConnected() {
		return fmt.Errorf("not connected to NATS")
	}
	return s.nc.FlushWithContext(ctx)
}

// Fetch pulls up to max messages, waiting until ctx is done
func (s *NATSSource) Fetch(ctx context.Context, max int) ([]service.QueueMessage, error) {
	if s.sub == nil {
		return nil, fmt.Errorf("not subscribed to %s", s.subject)
	}

	msgs, err := s.sub.Fetch(max, nats.Context(ctx))
	if err != nil && !isFetchTimeout(err) {
		return nil, fmt.Errorf("failed to fetch from %s: %w", s.subject, err)
	}

	out := make([]service.QueueMessage, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, natsMessage{msg: m})
	}
	return out, nil
}

func isFetchTimeout(err error) bool {
	return errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

// Close drains the consumer and closes the connection
func (s *NATSSource) Close() error {
	if s.sub != nil {
		if err := s.sub.Unsubscribe(); err != nil {
			log.WithError(err).Warn("Failed to unsubscribe from terminal queue")
		}
	}
	if s.nc != nil {
		s.nc.Close()
		log.Info("NATS connection closed")
	}
	return nil
}

type natsMessage struct {
	msg *nats.Msg
}

func (m natsMessage) ID() string {
	if m.msg.Header == nil {
		return ""
	}
	return m.msg.Header.Get(nats.MsgIdHdr)
}

func (m natsMessage) Data() []byte { return m.msg.Data }

func (m natsMessage) Signature() string {
	if m.msg.Header == nil {
		return ""
	}
	return m.msg.Header.Get(SignatureHeader)
}

func (m natsMessage) Ack(ctx context.Context) error { return m.msg.Ack() }

func (m natsMessage) Nak(ctx context.Context) error { return m.msg.Nak() }
