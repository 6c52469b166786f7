package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/brewq/internal/models"
	"github.com/desertthunder/brewq/internal/shared"
)

// OrdersSource is the update bus source refreshed after a successful action.
const OrdersSource = "orders"

const (
	StatusFailedMessage = "Failed to update order status"
	DeleteFailedMessage = "Failed to delete order"
)

// OrderClient is the part of services.Client that mutates orders.
type OrderClient interface {
	UpdateStatus(ctx context.Context, id int64, status models.Status) error
	DeleteOrder(ctx context.Context, id int64) error
}

// Refresher forces an immediate poll of a bus source.
type Refresher interface {
	ForceRefresh(source string) error
}

// Alerter shows a blocking message to the operator.
type Alerter interface {
	Alert(msg string)
}

// Action is an operator command against a single order.
type Action int

const (
	ActionStart Action = iota
	ActionComplete
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionComplete:
		return "complete"
	case ActionDelete:
		return "delete"
	default:
		return ""
	}
}

// ParseAction maps a command name to an [Action].
func ParseAction(s string) (Action, error) {
	switch s {
	case "start":
		return ActionStart, nil
	case "complete", "done":
		return ActionComplete, nil
	case "delete", "rm":
		return ActionDelete, nil
	}
	return 0, fmt.Errorf("%w: unknown action %q", shared.ErrInvalidArgument, s)
}

// ActionResult is the outcome of one action against one order.
type ActionResult struct {
	OrderID int64
	Action  Action
	Err     error
}

// OrderActions issues status and delete requests on behalf of the operator.
//
// A successful action forces a refresh of the orders source so the board
// reflects the change without waiting for the next cycle. A failed action
// raises a blocking alert and is not retried.
type OrderActions struct {
	client    OrderClient
	refresher Refresher
	alerter   Alerter
	logger    *log.Logger
}

// NewOrderActions wires the action surface. refresher and alerter may be nil.
func NewOrderActions(client OrderClient, refresher Refresher, alerter Alerter, logger *log.Logger) *OrderActions {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &OrderActions{client: client, refresher: refresher, alerter: alerter, logger: logger}
}

// Start moves an order to in_progress.
func (a *OrderActions) Start(ctx context.Context, id int64) error {
	return a.Apply(ctx, ActionStart, id)
}

// Complete moves an order to completed.
func (a *OrderActions) Complete(ctx context.Context, id int64) error {
	return a.Apply(ctx, ActionComplete, id)
}

// Delete removes an order.
func (a *OrderActions) Delete(ctx context.Context, id int64) error {
	return a.Apply(ctx, ActionDelete, id)
}

// Apply runs action against id, then refreshes or alerts.
func (a *OrderActions) Apply(ctx context.Context, action Action, id int64) error {
	if err := a.perform(ctx, action, id); err != nil {
		a.logger.Error("order action failed", "action", action, "order", id, "error", err)
		a.alert(failureMessage(action))
		return err
	}
	a.logger.Info("order action applied", "action", action, "order", id)
	a.refresh()
	return nil
}

func (a *OrderActions) perform(ctx context.Context, action Action, id int64) error {
	if a.client == nil {
		return fmt.Errorf("%w: order client not initialized", shared.ErrServiceUnavailable)
	}
	switch action {
	case ActionStart:
		return a.client.UpdateStatus(ctx, id, models.StatusInProgress)
	case ActionComplete:
		return a.client.UpdateStatus(ctx, id, models.StatusCompleted)
	case ActionDelete:
		return a.client.DeleteOrder(ctx, id)
	}
	return fmt.Errorf("%w: action %d", shared.ErrInvalidArgument, action)
}

func (a *OrderActions) refresh() {
	if a.refresher == nil {
		return
	}
	if err := a.refresher.ForceRefresh(OrdersSource); err != nil {
		// No orders subscription (one-shot CLI use) is expected.
		if errors.Is(err, shared.ErrUnknownSource) || errors.Is(err, shared.ErrClosed) {
			a.logger.Debug("orders refresh skipped", "error", err)
			return
		}
		a.logger.Warn("orders refresh failed", "error", err)
	}
}

func (a *OrderActions) alert(msg string) {
	if a.alerter != nil {
		a.alerter.Alert(msg)
	}
}

func failureMessage(action Action) string {
	if action == ActionDelete {
		return DeleteFailedMessage
	}
	return StatusFailedMessage
}
