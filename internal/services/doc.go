// Package services implements [Client], the HTTP client for the café order server.
//
// # Session
//
// The client keeps a cookie jar so a form [Client.Login] seeds the session and the
// csrf_token cookie. State-changing requests echo that cookie in the X-CSRFToken
// header. A configured bearer token is attached to every request through an
// [oauth2.Transport] with a static token source.
//
// # Polling
//
// [Client.Fetch] satisfies [poller.Fetcher]: it sends If-None-Match with the last
// known hash and reports a 304 as not modified. The payload hash comes from the
// ETag header when the body lacks one.
//
// # Actions
//
// [Client.UpdateStatus] and [Client.DeleteOrder] are rate limited with a
// [rate.Limiter] so bulk actions cannot flood the server.
//
// # Error Handling
//
// Non-2xx responses wrap [shared.ErrAPIRequest]; undecodable bodies wrap
// [shared.ErrInvalidPayload]. Callers match them with [errors.Is].
package services
