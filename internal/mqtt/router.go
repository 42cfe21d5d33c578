// Package mqtt hosts the long-lived event-bus side of the gateway: a
// reconnecting broker subscriber, a wildcard topic router and the handlers
// for irrigation-controller and camera messages.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rjames86/grafana-collectors/pkg/metrics"
)

// Message is one inbound bus message. Payloads are UTF-8 bytes, usually JSON
// but occasionally plain text.
type Message struct {
	Topic   string
	Payload []byte
}

// HandlerFunc processes one message. A returned error is terminal for that
// message only.
type HandlerFunc func(ctx context.Context, msg Message) error

// Route binds a topic filter to a handler. Name labels logs and metrics.
type Route struct {
	Filter  string
	Name    string
	Handler HandlerFunc
}

// Router dispatches messages to statically registered routes. Routes are
// matched in registration order and the first match wins, so each message
// reaches at most one handler. Unmatched topics drop silently.
type Router struct {
	logger  *slog.Logger
	metrics *metrics.SubscriberMetrics
	routes  []Route
}

// RouterConfig holds the configuration for the Router.
type RouterConfig struct {
	Logger  *slog.Logger
	Metrics *metrics.SubscriberMetrics
	Routes  []Route
}

// NewRouter creates a router over the given routes.
func NewRouter(cfg *RouterConfig) (*Router, error) {
	if cfg == nil {
		return nil, errors.New("router config cannot be nil")
	}
	if cfg.Logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if len(cfg.Routes) == 0 {
		return nil, errors.New("at least one route is required")
	}
	for _, route := range cfg.Routes {
		if route.Filter == "" || route.Name == "" || route.Handler == nil {
			return nil, fmt.Errorf("route %q is incomplete", route.Name)
		}
	}

	return &Router{
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		routes:  cfg.Routes,
	}, nil
}

// Filters returns the distinct topic filters the router wants subscribed.
func (r *Router) Filters() []string {
	seen := make(map[string]bool, len(r.routes))
	var filters []string
	for _, route := range r.routes {
		if !seen[route.Filter] {
			seen[route.Filter] = true
			filters = append(filters, route.Filter)
		}
	}
	return filters
}

// Dispatch routes one message. Handler errors and panics are contained here:
// they are logged and counted, and the router keeps processing subsequent
// messages.
func (r *Router) Dispatch(ctx context.Context, msg Message) {
	for _, route := range r.routes {
		if !MatchTopic(route.Filter, msg.Topic) {
			continue
		}

		if r.metrics != nil {
			r.metrics.MessagesReceived.WithLabelValues(route.Name).Inc()
		}
		r.invoke(ctx, route, msg)
		return
	}

	if r.metrics != nil {
		r.metrics.MessagesUnmatched.Inc()
	}
	r.logger.Debug("dropping unmatched message", "topic", msg.Topic)
}

func (r *Router) invoke(ctx context.Context, route Route, msg Message) {
	defer func() {
		if rec := recover(); rec != nil {
			if r.metrics != nil {
				r.metrics.HandlerFailures.WithLabelValues(route.Name).Inc()
			}
			r.logger.Error("handler panicked",
				"route", route.Name,
				"topic", msg.Topic,
				"panic", rec,
			)
		}
	}()

	if err := route.Handler(ctx, msg); err != nil {
		if r.metrics != nil {
			r.metrics.HandlerFailures.WithLabelValues(route.Name).Inc()
		}
		r.logger.Error("handler failed",
			"route", route.Name,
			"topic", msg.Topic,
			"error", err,
		)
	}
}

// MatchTopic reports whether a topic matches a subscription filter. "+"
// matches exactly one segment and "#" matches one or more trailing segments,
// so the filter "a/#" does not match the bare topic "a".
func MatchTopic(filter, topic string) bool {
	filterParts := strings.Split(filter, "/")
	topicParts := strings.Split(topic, "/")

	for i, part := range filterParts {
		if part == "#" {
			return i == len(filterParts)-1 && len(topicParts) > i
		}
		if i >= len(topicParts) {
			return false
		}
		if part != "+" && part != topicParts[i] {
			return false
		}
	}

	return len(topicParts) == len(filterParts)
}
