// Package notify publishes order lifecycle events to operators. The engine
// fires events synchronously; wrap a notifier in Async to keep delivery off
// the evaluation path.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"limitswap/internal/domain"
)

// Type identifies what happened to an order.
type Type string

const (
	OrderCreated        Type = "order_created"
	OrderExecuted       Type = "order_executed"
	OrderCancelled      Type = "order_cancelled"
	TakeProfitActivated Type = "take_profit_activated"
)

// Event is a single order lifecycle notification. Order is a snapshot taken
// at publish time.
type Event struct {
	Type  Type
	Order domain.Order
}

// Notifier delivers events. Implementations must not block the caller for
// long; slow transports belong behind Async.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// LogNotifier writes events to the structured log. It is the default sink
// when no external transport is configured.
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier returns a log-backed notifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, ev Event) {
	n.log.Info("order event",
		"type", string(ev.Type),
		"order_id", ev.Order.ID,
		"wallet", ev.Order.WalletName,
		"direction", string(ev.Order.Direction),
		"status", string(ev.Order.Status),
		"amount", ev.Order.Amount,
		"trigger", ev.Order.TriggerPrice)
}

// Format renders the event as a short human-readable message.
func Format(ev Event) string {
	o := ev.Order
	switch ev.Type {
	case OrderCreated:
		return fmt.Sprintf("Order #%d created: %s %.6f @ trigger %.4f (wallet %s)",
			o.ID, o.Direction, o.Amount, o.TriggerPrice, o.WalletName)
	case OrderExecuted:
		return fmt.Sprintf("Order #%d executed: %s %.6f -> %.6f @ %.4f via %s (tx %s)",
			o.ID, o.Direction, o.Amount, o.ActualOutput, o.ExecutionPrice,
			o.RouteUsed, o.TxRef)
	case OrderCancelled:
		return fmt.Sprintf("Order #%d cancelled: %s %.6f @ trigger %.4f (%s)",
			o.ID, o.Direction, o.Amount, o.TriggerPrice, o.CancelReason)
	case TakeProfitActivated:
		return fmt.Sprintf("Take-profit #%d activated: %s %.6f @ trigger %.4f (parent #%d)",
			o.ID, o.Direction, o.Amount, o.TriggerPrice, o.LinkedOrderID)
	}
	return fmt.Sprintf("Order #%d: %s", o.ID, ev.Type)
}
