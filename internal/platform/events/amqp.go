// Package events fans stored activity out to a RabbitMQ topic exchange.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
)

const (
	DefaultExchange = "multiman.activity"
	routingPrefix   = "activity."
	contentTypeJSON = "application/json"

	// dialTimeout bounds the TCP connect and AMQP handshake.
	dialTimeout = 3 * time.Second
	// redialBackoff is how long a failed dial is remembered before the
	// next publish tries again.
	redialBackoff = 5 * time.Second
)

var (
	ErrClosed = errors.New("events: publisher closed")
	// ErrRedialing is returned while another goroutine is dialing the broker.
	ErrRedialing = errors.New("events: broker redial in progress")
)

// ActivityMessage is the JSON body of every published message.
type ActivityMessage struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Action    string           `json:"action"`
	Metadata  *domain.Document `json:"metadata"`
	CreatedAt time.Time        `json:"created_at"`
}

// channel is the slice of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

type opener func() (channel, error)

// Publisher keeps one connection and channel open and redials lazily after
// a failure. The dial runs outside the lock: concurrent publishes fail fast
// with ErrRedialing, and after a failed dial they return that error until
// redialBackoff has passed. It is safe for concurrent use.
type Publisher struct {
	exchange string
	open     opener
	now      func() time.Time

	mu      sync.Mutex
	ch      channel
	closed  bool
	dialing bool
	dialErr error
	retryAt time.Time
}

// NewPublisher dials url, declares a durable topic exchange and returns a
// publisher. An empty exchange means DefaultExchange.
func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := newPublisher(exchange, dialer(url, exchange))
	if err := p.Check(context.Background()); err != nil {
		return nil, err
	}
	return p, nil
}

func newPublisher(exchange string, open opener) *Publisher {
	return &Publisher{exchange: exchange, open: open, now: time.Now}
}

// Publish sends entry with routing key "activity.<action>". Action text is
// lower-cased and characters outside [a-z0-9_-] become underscores.
func (p *Publisher) Publish(ctx context.Context, entry domain.ActivityLog) error {
	body, err := json.Marshal(ActivityMessage{
		ID:        entry.ID,
		UserID:    entry.UserID,
		Action:    entry.Action,
		Metadata:  entry.Metadata,
		CreatedAt: entry.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("events: encode activity: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, p.exchange, RoutingKey(entry.Action), false, false, amqp.Publishing{
		ContentType:  contentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    entry.ID,
		Timestamp:    entry.CreatedAt.UTC(),
		Type:         "activity.logged",
		Body:         body,
	})
	if err != nil {
		p.reset(ch)
		return fmt.Errorf("events: publish: %w", err)
	}
	return nil
}

// Check opens the channel if needed. Readiness probes call it.
func (p *Publisher) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.channel()
	return err
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.ch == nil {
		return nil
	}
	err := p.ch.Close()
	p.ch = nil
	return err
}

func (p *Publisher) channel() (channel, error) {
	p.mu.Lock()
	switch {
	case p.closed:
		p.mu.Unlock()
		return nil, ErrClosed
	case p.ch != nil && !p.ch.IsClosed():
		ch := p.ch
		p.mu.Unlock()
		return ch, nil
	case p.dialing:
		p.mu.Unlock()
		return nil, ErrRedialing
	case p.dialErr != nil && p.now().Before(p.retryAt):
		err := p.dialErr
		p.mu.Unlock()
		return nil, err
	}
	p.dialing = true
	p.mu.Unlock()

	ch, err := p.open()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.dialing = false
	if err != nil {
		p.dialErr = fmt.Errorf("events: open channel: %w", err)
		p.retryAt = p.now().Add(redialBackoff)
		return nil, p.dialErr
	}
	p.dialErr = nil
	if p.closed {
		_ = ch.Close()
		return nil, ErrClosed
	}
	p.ch = ch
	return ch, nil
}

// reset drops ch so the next publish redials, unless another goroutine
// already replaced it.
func (p *Publisher) reset(ch channel) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == ch {
		_ = ch.Close()
		p.ch = nil
	}
}

// RoutingKey derives the topic routing key for an action.
func RoutingKey(action string) string {
	var b strings.Builder
	b.WriteString(routingPrefix)
	for _, r := range strings.ToLower(strings.TrimSpace(action)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

// amqpChannel owns the connection behind a channel so closing one closes both.
type amqpChannel struct {
	*amqp.Channel
	conn *amqp.Connection
}

func (c *amqpChannel) IsClosed() bool {
	return c.conn.IsClosed() || c.Channel.IsClosed()
}

func (c *amqpChannel) Close() error {
	_ = c.Channel.Close()
	return c.conn.Close()
}

func dialer(url, exchange string) opener {
	return func() (channel, error) {
		conn, err := amqp.DialConfig(url, amqp.Config{
			Heartbeat: 10 * time.Second,
			Locale:    "en_US",
			Dial:      amqp.DefaultDial(dialTimeout),
		})
		if err != nil {
			return nil, err
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		if err := ch.ExchangeDeclare(
			exchange, // name
			"topic",  // kind
			true,     // durable
			false,    // autoDelete
			false,    // internal
			false,    // noWait
			nil,      // args
		); err != nil {
			_ = conn.Close()
			return nil, err
		}
		return &amqpChannel{Channel: ch, conn: conn}, nil
	}
}
