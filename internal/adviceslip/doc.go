// Package adviceslip provides an HTTP client for the advice slip API.
//
// # Overview
//
// The remote source exposes two read-only endpoints that both answer with a
// single slip:
//
//   - GET /advice: a random advice
//   - GET /advice/{id}: the advice with that id, 404 when unknown
//
// Either may answer 429 when the caller exceeds the remote rate limit.
//
// The wire shape {"slip": {"id": 42, "advice": "Be kind."}} is mapped onto the
// domain value Advice{ID: 42, Text: "Be kind."}.
//
// # Client Usage
//
//	client, err := adviceslip.NewClient("https://api.adviceslip.com",
//		adviceslip.WithTimeout(5*time.Second),
//		adviceslip.WithLimiter(adviceslip.NewLimiter(200*time.Millisecond)),
//	)
//	if err != nil {
//		return err
//	}
//	advice, err := client.FetchRandom(ctx)
//
// # Request Handling
//
// Every request:
//   - Waits on the client's Limiter so requests are spaced at least 200ms apart
//   - Runs under its own deadline (5 seconds by default)
//   - Sets Accept: application/json and User-Agent: slip/0.1
//
// # Error Handling
//
// Failures are reported as *Error carrying a Kind:
//
//   - KindNotFound: 404, or a by-id lookup answered with a message and no slip
//   - KindRateLimited: 429
//   - KindTimeout: the request deadline passed
//   - KindTransport: connection refused, DNS failure, reset
//   - KindUnexpected: other statuses, malformed JSON, empty advice
//
// Use errors.Is(err, adviceslip.ErrNotFound) and friends to branch on kind.
// Retryable reports which kinds are worth another attempt. When the caller's
// own context is cancelled the context error is returned as is.
//
// # Design Rationale
//
// The client holds no cache and never retries; the cache package owns
// freshness, request coalescing and the retry policy.
package adviceslip
