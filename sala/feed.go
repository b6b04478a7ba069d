package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"

	"github.com/taldoflemis/trattoria/cucina"
)

// OrderFeed fans newly placed and updated orders out to the admin
// panel's live view.
type OrderFeed interface {
	PubOrder(ctx context.Context, order cucina.Order) error
	SubLiveOrders(ctx context.Context, flusher http.Flusher) (<-chan cucina.Order, error)
	UnsubLiveOrders(ctx context.Context, flusher http.Flusher) error
}

// feedChannelSize bounds each subscriber's backlog. A consumer that
// falls further behind loses events rather than stalling the feed.
const feedChannelSize = 16

type GoChannelOrderFeed struct {
	liveEventSubscribers map[http.Flusher]chan cucina.Order
	mu                   sync.Mutex
}

var _ OrderFeed = (*GoChannelOrderFeed)(nil)

func NewGoChannelOrderFeed() *GoChannelOrderFeed {
	return &GoChannelOrderFeed{
		liveEventSubscribers: make(map[http.Flusher]chan cucina.Order),
	}
}

// PubOrder implements OrderFeed. The lock only guards the subscriber
// snapshot; sends happen outside it and never block, so a slow or
// departing subscriber cannot wedge the publisher.
func (g *GoChannelOrderFeed) PubOrder(ctx context.Context, order cucina.Order) error {
	ctx, span := tracer.Start(ctx, "GoChannelOrderFeed.PubOrder")
	defer span.End()

	slog.InfoContext(ctx, "publishing order", slog.String("order_id", order.ID))

	g.mu.Lock()
	subs := make([]chan cucina.Order, 0, len(g.liveEventSubscribers))
	for _, subChan := range g.liveEventSubscribers {
		subs = append(subs, subChan)
	}
	g.mu.Unlock()

	for _, subChan := range subs {
		select {
		case subChan <- order:
		default:
			slog.WarnContext(ctx, "dropping order event for slow subscriber", slog.String("order_id", order.ID))
		}
	}

	return nil
}

// SubLiveOrders implements OrderFeed for SSE.
func (g *GoChannelOrderFeed) SubLiveOrders(ctx context.Context, flusher http.Flusher) (<-chan cucina.Order, error) {
	ctx, span := tracer.Start(ctx, "GoChannelOrderFeed.SubLiveOrders")
	defer span.End()

	slog.InfoContext(ctx, "subscribing to live orders (SSE)")

	ch := make(chan cucina.Order, feedChannelSize)
	g.mu.Lock()
	g.liveEventSubscribers[flusher] = ch
	g.mu.Unlock()
	return ch, nil
}

// UnsubLiveOrders implements OrderFeed for SSE.
func (g *GoChannelOrderFeed) UnsubLiveOrders(ctx context.Context, flusher http.Flusher) error {
	ctx, span := tracer.Start(ctx, "GoChannelOrderFeed.UnsubLiveOrders")
	defer span.End()

	slog.InfoContext(ctx, "unsubscribing from live orders (SSE)")

	g.mu.Lock()
	delete(g.liveEventSubscribers, flusher)
	g.mu.Unlock()
	return nil
}

// NATSOrderFeed carries the feed over NATS so several sala replicas see
// each other's orders.
type NATSOrderFeed struct {
	nc          *nats.Conn
	subject     string
	subs        map[http.Flusher]*nats.Subscription
	mu          sync.Mutex
	channelSize int
}

var _ OrderFeed = (*NATSOrderFeed)(nil)

func NewNATSOrderFeed(nc *nats.Conn, subject string) *NATSOrderFeed {
	return &NATSOrderFeed{
		nc:          nc,
		subject:     subject,
		subs:        make(map[http.Flusher]*nats.Subscription),
		channelSize: feedChannelSize,
	}
}

func (n *NATSOrderFeed) PubOrder(ctx context.Context, order cucina.Order) error {
	propagator := otel.GetTextMapPropagator()
	msg := &nats.Msg{
		Subject: n.subject,
		Header:  nats.Header{},
	}
	propagator.Inject(ctx, propagation.HeaderCarrier(msg.Header))
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}
	msg.Data = data
	return n.nc.PublishMsg(msg)
}

// SubLiveOrders implements OrderFeed.
func (n *NATSOrderFeed) SubLiveOrders(ctx context.Context, flusher http.Flusher) (<-chan cucina.Order, error) {
	ctx, span := tracer.Start(ctx, "NATSOrderFeed.SubLiveOrders")
	defer span.End()

	propagator := otel.GetTextMapPropagator()

	orderCh := make(chan cucina.Order, n.channelSize)
	sub, err := n.nc.Subscribe(n.subject, func(msg *nats.Msg) {
		ctx = propagator.Extract(ctx, propagation.HeaderCarrier(msg.Header))
		var order cucina.Order

		err := json.Unmarshal(msg.Data, &order)
		if err != nil {
			slog.ErrorContext(ctx, "failed to unmarshal order from NATS message", "error", err)
			return
		}

		select {
		case orderCh <- order:
		default:
			slog.WarnContext(ctx, "dropping order event for slow subscriber", "order_id", order.ID)
		}
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to subscribe to NATS subject", "subject", n.subject, "error", err)
		span.SetStatus(codes.Error, "failed to subscribe to NATS subject")
		span.RecordError(err)
		return nil, err
	}

	n.mu.Lock()
	n.subs[flusher] = sub
	n.mu.Unlock()

	return orderCh, nil
}

// UnsubLiveOrders implements OrderFeed.
func (n *NATSOrderFeed) UnsubLiveOrders(ctx context.Context, flusher http.Flusher) error {
	ctx, span := tracer.Start(ctx, "NATSOrderFeed.UnsubLiveOrders")
	defer span.End()

	slog.InfoContext(ctx, "unsubscribing from live orders")

	n.mu.Lock()
	defer n.mu.Unlock()

	sub, ok := n.subs[flusher]
	if !ok {
		slog.WarnContext(ctx, "no subscription found for SSE connection")
		return nil
	}

	_ = sub.Unsubscribe()
	delete(n.subs, flusher)

	return nil
}
