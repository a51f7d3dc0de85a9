package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConnected is returned by PublishWithRetry while the broker is unreachable
var ErrNotConnected = errors.New("not connected to RabbitMQ")

const (
	defaultPublishRetries = 3
	defaultRetryDelay     = 100 * time.Millisecond
	defaultBackoffMult    = 2.0
)

// Config holds RabbitMQ connection configuration
type Config struct {
	Host               string
	Port               int
	User               string
	Password           string
	VHost              string
	ExchangeName       string
	ExchangeType       string
	ExchangeDurable    bool
	ExchangeAutoDelete bool
	QueueName          string
	QueueDurable       bool
	QueueAutoDelete    bool
	QueueExclusive     bool
	RoutingKey         string
	RetryAttempts      int
	RetryInterval      time.Duration
	Heartbeat          time.Duration
	ConnectionTimeout  time.Duration
	PublishRetries     int
	PublishRetryDelay  time.Duration
	PublishBackoffMult float64
}

// URL builds the AMQP URL with escaped credentials and vhost
func (c *Config) URL() string {
	vhost := c.VHost
	if vhost == "" {
		vhost = "/"
	}
	u := url.URL{
		Scheme: "amqp",
		User:   url.UserPassword(c.User, c.Password),
		Host:   c.Host + ":" + strconv.Itoa(c.Port),
		// "/" is the default vhost and must be sent as %2f
		Path:    "/" + vhost,
		RawPath: "/" + url.PathEscape(vhost),
	}
	return u.String()
}

// Client publishes lifecycle messages to a single exchange. A dropped
// connection is detected through NotifyClose and re-dialed in the background;
// publishes fail fast with ErrNotConnected until it is back.
type Client struct {
	config *Config
	logger *slog.Logger

	mu      sync.RWMutex
	conn    *amqp.Connection
	channel *amqp.Channel

	connected atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient dials the broker, declares the topology and starts watching the
// connection.
func NewClient(config *Config, logger *slog.Logger) (*Client, error) {
	client := &Client{
		config: config,
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := client.connect(); err != nil {
		return nil, fmt.Errorf("failed to create RabbitMQ client: %w", err)
	}

	return client, nil
}

// connect dials with retries, declares the topology and starts the watcher
func (c *Client) connect() error {
	attempts := c.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		c.logger.Info("Connecting to RabbitMQ",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
		)

		if err = c.open(); err == nil {
			break
		}

		c.logger.Error("Failed to connect to RabbitMQ",
			slog.Any("error", err),
			slog.Int("attempt", attempt),
		)

		if attempt < attempts && !c.wait(c.config.RetryInterval) {
			return fmt.Errorf("connect aborted: %w", ErrNotConnected)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
	}

	c.logger.Info("RabbitMQ client initialized",
		slog.String("exchange", c.config.ExchangeName),
		slog.String("queue", c.config.QueueName),
	)
	return nil
}

// open performs a single dial + channel + topology round and swaps the
// connection in.
func (c *Client) open() error {
	amqpConfig := amqp.Config{
		Heartbeat: c.config.Heartbeat,
		Locale:    "en_US",
	}
	if c.config.ConnectionTimeout > 0 {
		amqpConfig.Dial = amqp.DefaultDial(c.config.ConnectionTimeout)
	}

	conn, err := amqp.DialConfig(c.config.URL(), amqpConfig)
	if err != nil {
		return err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to create channel: %w", err)
	}

	if err := c.setup(channel); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("failed to setup exchange and queue: %w", err)
	}

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chanClosed := channel.NotifyClose(make(chan *amqp.Error, 1))

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()
	c.connected.Store(true)

	go c.watch(connClosed, chanClosed)
	return nil
}

// watch flips the client to disconnected when either the connection or the
// channel closes, then re-dials until Close is called.
func (c *Client) watch(connClosed, chanClosed <-chan *amqp.Error) {
	var reason *amqp.Error
	select {
	case <-c.done:
		return
	case reason = <-connClosed:
	case reason = <-chanClosed:
	}

	select {
	case <-c.done:
		return
	default:
	}

	c.connected.Store(false)
	c.logger.Warn("RabbitMQ connection lost", slog.Any("reason", reason))

	c.mu.Lock()
	if c.conn != nil && !c.conn.IsClosed() {
		c.conn.Close()
	}
	c.mu.Unlock()

	for {
		if !c.wait(c.config.RetryInterval) {
			return
		}
		if err := c.open(); err != nil {
			c.logger.Warn("RabbitMQ reconnect failed", slog.Any("error", err))
			continue
		}
		c.logger.Info("RabbitMQ connection restored")
		return
	}
}

// wait sleeps for d unless Close is called first
func (c *Client) wait(d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-c.done:
		return false
	case <-time.After(d):
		return true
	}
}

// setup declares the exchange and, when a queue is configured, binds it
func (c *Client) setup(channel *amqp.Channel) error {
	err := channel.ExchangeDeclare(
		c.config.ExchangeName,       // name
		c.config.ExchangeType,       // type
		c.config.ExchangeDurable,    // durable
		c.config.ExchangeAutoDelete, // auto-deleted
		false,                       // internal
		false,                       // no-wait
		nil,                         // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if c.config.QueueName == "" {
		return nil
	}

	_, err = channel.QueueDeclare(
		c.config.QueueName,       // name
		c.config.QueueDurable,    // durable
		c.config.QueueAutoDelete, // auto-delete
		c.config.QueueExclusive,  // exclusive
		false,                    // no-wait
		nil,                      // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	if err := channel.QueueBind(c.config.QueueName, c.config.RoutingKey, c.config.ExchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue: %w", err)
	}

	return nil
}

// Close stops reconnecting and closes the connection
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.logger.Info("Closing RabbitMQ connection")
		close(c.done)
		c.connected.Store(false)

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.channel != nil {
			if cerr := c.channel.Close(); cerr != nil && !errors.Is(cerr, amqp.ErrClosed) {
				c.logger.Error("Failed to close RabbitMQ channel", slog.Any("error", cerr))
			}
		}
		if c.conn != nil && !c.conn.IsClosed() {
			if err = c.conn.Close(); err != nil {
				c.logger.Error("Failed to close RabbitMQ connection", slog.Any("error", err))
			}
		}
	})
	return err
}

// IsConnected reports whether the last known connection is open
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// PublishWithRetry publishes body with exponential backoff between attempts.
// It returns ErrNotConnected without retrying while the broker is down, and
// stops retrying once the connection drops or ctx is done.
func (c *Client) PublishWithRetry(ctx context.Context, body []byte, contentType string) error {
	if !c.IsConnected() {
		return ErrNotConnected
	}

	retries := c.config.PublishRetries
	if retries <= 0 {
		retries = defaultPublishRetries
	}

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		err := c.publish(ctx, body, contentType)
		if err == nil {
			if attempt > 0 {
				c.logger.Info("Published message to RabbitMQ after retry",
					slog.Int("attempt", attempt+1),
					slog.Int("body_size", len(body)),
				)
			}
			return nil
		}
		lastErr = err

		if !c.IsConnected() || errors.Is(err, amqp.ErrClosed) {
			return fmt.Errorf("%w: %w", ErrNotConnected, err)
		}
		if attempt == retries {
			break
		}

		delay := Backoff(c.config.PublishRetryDelay, c.config.PublishBackoffMult, attempt)
		c.logger.Warn("Failed to publish message to RabbitMQ, retrying",
			slog.Int("attempt", attempt+1),
			slog.Int("max_retries", retries),
			slog.Duration("retry_after", delay),
			slog.Any("error", err),
		)

		select {
		case <-ctx.Done():
			return fmt.Errorf("publish canceled after %d attempts: %w", attempt+1, ctx.Err())
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("failed to publish message after %d attempts: %w", retries+1, lastErr)
}

func (c *Client) publish(ctx context.Context, body []byte, contentType string) error {
	c.mu.RLock()
	channel := c.channel
	c.mu.RUnlock()

	if channel == nil {
		return ErrNotConnected
	}

	return channel.PublishWithContext(ctx,
		c.config.ExchangeName,
		c.config.RoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  contentType,
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
}

// Backoff is the wait before retry number attempt+1: base * mult^attempt.
// Non-positive inputs fall back to 100ms and a multiplier of 2.
func Backoff(base time.Duration, mult float64, attempt int) time.Duration {
	if base <= 0 {
		base = defaultRetryDelay
	}
	if mult <= 0 {
		mult = defaultBackoffMult
	}
	if attempt < 0 {
		attempt = 0
	}
	return time.Duration(float64(base) * math.Pow(mult, float64(attempt)))
}
