package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"expenses/internal/core"

	"github.com/rabbitmq/amqp091-go"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures = 5
	openTimeout = 30 * time.Second
)

// Client publishes expense events to a durable direct exchange. A dropped
// connection is re-dialed on the next publish; repeated failures open a
// circuit breaker so a broker outage does not slow every request down.
type Client struct {
	url          string
	exchangeName string
	routingKey   string

	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	failureCount int64
	state        int32
	// unix nanoseconds of the most recent failure; read without mu
	lastFailure atomic.Int64
}

func NewClient(url, exchangeName, routingKey string) (*Client, error) {
	c := &Client{
		url:          url,
		exchangeName: exchangeName,
		routingKey:   routingKey,
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.connectLocked(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) connectLocked() error {
	conn, err := amqp091.Dial(c.url)
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("declare exchange: %w", err)
	}

	c.conn = conn
	c.channel = channel
	return nil
}

func (c *Client) resetLocked() {
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// PublishExpenseCreated publishes an expense.created event for e.
func (c *Client) PublishExpenseCreated(ctx context.Context, e core.Expense) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return errors.New("circuit breaker is open: AMQP publishing temporarily disabled")
	}

	body, err := NewExpenseCreatedMessage(e).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.channel == nil || c.channel.IsClosed() {
		c.resetLocked()
		if err := c.connectLocked(); err != nil {
			c.recordFailure()
			return fmt.Errorf("reconnect: %w", err)
		}
		slog.InfoContext(ctx, "Reconnected to AMQP broker", "exchange", c.exchangeName)
	}

	err = c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.routingKey,   // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Type:         EventExpenseCreated,
			Body:         body,
		},
	)
	if err != nil {
		c.recordFailure()
		if isConnectionError(err) {
			c.resetLocked()
		}
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	slog.DebugContext(ctx, "Published expense created event",
		"id", e.ID,
		"exchange", c.exchangeName,
		"routing_key", c.routingKey)

	return nil
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		if time.Since(time.Unix(0, c.lastFailure.Load())) > openTimeout {
			atomic.StoreInt32(&c.state, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordFailure() {
	c.lastFailure.Store(time.Now().UnixNano())
	if atomic.AddInt64(&c.failureCount, 1) >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

// exponentialBackoff returns the wait before attempt n, doubling from one
// second up to a 30 second cap.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return 30 * time.Second
	}
	return time.Duration(1<<attempt) * time.Second
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "broken pipe", "closed network"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// Connect dials with exponential backoff until it succeeds, ctx is done or
// attempts are exhausted.
func Connect(ctx context.Context, url, exchangeName, routingKey string, attempts int) (*Client, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		c, err := NewClient(url, exchangeName, routingKey)
		if err == nil {
			return c, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		wait := exponentialBackoff(i)
		slog.WarnContext(ctx, "AMQP connection failed, retrying", "attempt", i+1, "wait", wait, "error", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var err error
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err = c.conn.Close()
		c.conn = nil
	}
	return err
}
