package display

import (
	"fmt"

	"github.com/desertthunder/brewq/internal/models"
	"github.com/desertthunder/brewq/internal/shared"
)

// Feed names and defaults for the pending-orders subscription.
const (
	OrdersSource   = "orders"
	OrdersEndpoint = "/api/orders/pending"
)

// OrdersParams are the static query parameters of the orders subscription.
func OrdersParams() map[string][]string {
	return map[string][]string{"status": {"active"}}
}

// DecodeOrders is a bus transform for the pending-orders feed.
// Envelope hash and timestamp fill in when the body lacks them.
func DecodeOrders(raw models.Payload) (any, error) {
	var p models.OrdersPayload
	if err := raw.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidPayload, err)
	}
	if p.Hash == "" {
		p.Hash = raw.Hash
	}
	if p.Timestamp == 0 {
		p.Timestamp = raw.Timestamp
	}
	return p, nil
}

// OrdersFrom recovers the orders payload from a bus delivery, decoding the raw
// payload when the transform did not run.
func OrdersFrom(data any, raw models.Payload) (models.OrdersPayload, error) {
	if p, ok := data.(models.OrdersPayload); ok {
		return p, nil
	}
	v, err := DecodeOrders(raw)
	if err != nil {
		return models.OrdersPayload{}, err
	}
	return v.(models.OrdersPayload), nil
}
