// Package server serves the order board to a kiosk browser.
//
// [NewKiosk] assembles a [BasicRouter] with these routes:
//
//	GET /         full HTML page that reloads itself every few seconds
//	GET /board    the order list fragment only
//	GET /healthz  poller state as JSON; 503 once any poller has stopped
//	GET /metrics  Prometheus exposition, when a metrics handler is supplied
//
// [Middleware] wraps handlers so that the first one added is the outermost.
// [Recover] and [Logging] are installed by default. [Server] runs the router
// until its context is cancelled and then shuts down gracefully.
package server
