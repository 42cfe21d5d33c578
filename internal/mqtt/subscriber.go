package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/rjames86/grafana-collectors/pkg/metrics"
)

const (
	// Initial delay between broker reconnection attempts.
	reconnectMinDelay = 1 * time.Second

	// Cap on the reconnection backoff. Attempts continue forever; the
	// supervisor restarts the process if the broker never comes back.
	reconnectMaxDelay = 60 * time.Second

	// Bound on one handler invocation, covering its outbound calls.
	defaultHandlerTimeout = 30 * time.Second

	connectTimeout    = 30 * time.Second
	disconnectQuiesce = 250 // milliseconds, paho's unit
)

// Subscriber is the long-lived broker connection. Inbound messages are
// dispatched through the router one at a time, in arrival order; the broker
// acknowledgement never waits on a handler's outbound calls beyond the
// handler timeout.
type Subscriber struct {
	logger  *slog.Logger
	metrics *metrics.SubscriberMetrics
	router  *Router
	client  paho.Client
	qos     byte
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// SubscriberConfig holds the configuration for the Subscriber.
type SubscriberConfig struct {
	Logger  *slog.Logger
	Metrics *metrics.SubscriberMetrics
	Router  *Router
	// BrokerURL is the broker address, e.g. "tcp://broker:1883".
	BrokerURL string
	// ClientID identifies this subscriber to the broker.
	ClientID string
	Username string
	Password string
	// QoS for all subscriptions. Floored at 1 so notification-bearing
	// messages survive a broker restart; QoS 0 is not expressible.
	QoS byte
	// HandlerTimeout bounds one handler invocation (defaults to 30s).
	HandlerTimeout time.Duration
}

// NewSubscriber creates the subscriber. Connect with Start.
func NewSubscriber(cfg *SubscriberConfig) (*Subscriber, error) {
	if cfg == nil {
		return nil, errors.New("subscriber config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.Router == nil {
		return nil, errors.New("router cannot be nil")
	}
	if cfg.BrokerURL == "" {
		return nil, errors.New("broker URL cannot be empty")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client id cannot be empty")
	}

	qos := cfg.QoS
	if qos == 0 {
		qos = 1
	}
	timeout := cfg.HandlerTimeout
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}

	s := &Subscriber{
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		router:  cfg.Router,
		qos:     qos,
		timeout: timeout,
	}

	opts := paho.NewClientOptions().
		AddBroker(cfg.BrokerURL).
		SetClientID(cfg.ClientID).
		SetUsername(cfg.Username).
		SetPassword(cfg.Password).
		SetOrderMatters(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(reconnectMinDelay).
		SetMaxReconnectInterval(reconnectMaxDelay).
		SetOnConnectHandler(s.onConnect).
		SetConnectionLostHandler(s.onConnectionLost).
		SetReconnectingHandler(s.onReconnecting)

	s.client = paho.NewClient(opts)
	return s, nil
}

// Start connects to the broker. Subscriptions are established (and
// re-established after every reconnect) by the connect callback.
func (s *Subscriber) Start() error {
	token := s.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("broker connection timed out after %s", connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("broker connection failed: %w", err)
	}
	return nil
}

// Close stops accepting new messages, waits for the in-flight handler to
// finish and disconnects.
func (s *Subscriber) Close() {
	filters := s.router.Filters()
	if token := s.client.Unsubscribe(filters...); token.WaitTimeout(connectTimeout) {
		if err := token.Error(); err != nil {
			s.logger.Warn("unsubscribe failed", "error", err)
		}
	}

	// Mark closed before waiting so a message the broker delivers after the
	// unsubscribe cannot register in-flight work behind the Wait.
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wg.Wait()
	s.client.Disconnect(disconnectQuiesce)
	s.logger.Info("subscriber stopped")
}

func (s *Subscriber) onConnect(client paho.Client) {
	s.logger.Info("connected to broker")
	if s.metrics != nil {
		s.metrics.ConnectionStatus.Set(1)
	}

	// Route through our own router rather than paho's per-filter callback
	// table so overlap resolution stays first-match-wins.
	for _, filter := range s.router.Filters() {
		s.logger.Info("subscribing", "filter", filter)
		token := client.Subscribe(filter, s.qos, s.handle)
		if !token.WaitTimeout(connectTimeout) || token.Error() != nil {
			s.logger.Error("subscription failed", "filter", filter, "error", token.Error())
		}
	}
}

func (s *Subscriber) onConnectionLost(_ paho.Client, err error) {
	s.logger.Error("broker connection lost", "error", err)
	if s.metrics != nil {
		s.metrics.ConnectionStatus.Set(0)
	}
}

func (s *Subscriber) onReconnecting(_ paho.Client, _ *paho.ClientOptions) {
	s.logger.Info("reconnecting to broker")
	if s.metrics != nil {
		s.metrics.ReconnectAttempts.Inc()
	}
}

// handle runs on paho's callback goroutine; with ordered delivery enabled
// paho serializes these calls, so handlers execute one at a time in arrival
// order. The message is acknowledged regardless of handler outcome.
func (s *Subscriber) handle(_ paho.Client, m paho.Message) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.logger.Debug("dropping message after close", "topic", m.Topic())
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	s.router.Dispatch(ctx, Message{Topic: m.Topic(), Payload: m.Payload()})
}
