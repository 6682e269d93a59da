// Package issuer mints session tokens from the upstream identity authority
// for outbound use, for example to call a downstream API on behalf of the
// current session.
//
// Minting is the only suspending operation in this module: it performs
// network I/O, retries transient failures once with backoff, and gives up
// with ErrUpstreamUnavailable after a hard timeout. Callers should treat
// that as "no token right now" rather than a fatal condition.
package issuer
