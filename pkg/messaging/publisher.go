// Package messaging defines the event publishing contract shared by the
// storefront and the notifier.
package messaging

import (
	"context"
)

// OrdersCreatedSubject is the subject under which finalized orders are published.
const OrdersCreatedSubject = "orders.created"

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
