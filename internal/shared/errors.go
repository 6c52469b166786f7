package shared

import "fmt"

var (
	// Configuration errors
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrInvalidPayload     = fmt.Errorf("invalid payload")
	ErrOrderNotFound      = fmt.Errorf("order not found")

	// Realtime errors
	ErrClosed         = fmt.Errorf("update bus closed")
	ErrUnknownSource  = fmt.Errorf("unknown data source")
	ErrPollerStopped  = fmt.Errorf("poller stopped after repeated failures")
	ErrRenderTarget   = fmt.Errorf("render target unavailable")
	ErrTransformPanic = fmt.Errorf("transform panicked")

	// Printing errors
	ErrPopupBlocked  = fmt.Errorf("label viewport could not be opened")
	ErrNotObservable = fmt.Errorf("viewport readiness cannot be observed")
	ErrPrintFailed   = fmt.Errorf("print failed")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidStatus   = fmt.Errorf("invalid order status")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
