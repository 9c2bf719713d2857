// Package probe checks whether a candidate asset URL is reachable.
//
// A probe issues a HEAD request and treats any 2xx as reachable. Origins that
// reject HEAD with 405 or 403 get one GET in the same attempt. Transport
// failures and retryable statuses (0, 429, 5xx) are retried with exponential
// backoff, multiplying the delay by 1.5 after every retry:
//
//	attempt 0 -> fail -> sleep 300ms
//	attempt 1 -> fail -> sleep 450ms
//	attempt 2 -> fail -> false
//
// Probes never return errors. A URL is either reachable or it is not, and the
// reason is reported through the configured logger.
//
// # Usage
//
//	p := probe.New(probe.WithTimeout(5 * time.Second))
//	if p.Probe(ctx, "https://unpkg.com/react@18/umd/react.production.min.js") {
//	    // commit to this URL
//	}
package probe
