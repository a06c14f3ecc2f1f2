package loconet

import "time"

// Contextual options for operations that wait on a peer's response over the
// bus (LNCV read/write round-trips driven from the CLI). Adapted from the
// teacher's pkgs/commandstation/interface.go ctxOptions pattern, which used
// the same shape to configure Z21 command-station requests.

type lncvOptions func(*LncvRequestContext) error

// LncvRequestContext configures how long a caller waits for an LNCV
// programming response and how many times it retries.
type LncvRequestContext struct {
	Timeout time.Duration
	Retries uint8
	Verify  bool
}

// defaultLncvContext mirrors sane defaults for a bus round-trip: a handful
// of bit-times of wire latency plus processing slack.
func defaultLncvContext() *LncvRequestContext {
	return &LncvRequestContext{
		Timeout: 500 * time.Millisecond,
		Retries: 2,
	}
}

// WithTimeout bounds how long a caller waits for a response.
func WithTimeout(d time.Duration) lncvOptions {
	return func(ctx *LncvRequestContext) error {
		ctx.Timeout = d
		return nil
	}
}

// WithRetries sets how many additional attempts follow a timeout.
func WithRetries(n uint8) lncvOptions {
	return func(ctx *LncvRequestContext) error {
		ctx.Retries = n
		return nil
	}
}

// WithVerify requests a follow-up read after a write to confirm the value
// actually stuck.
func WithVerify(verify bool) lncvOptions {
	return func(ctx *LncvRequestContext) error {
		ctx.Verify = verify
		return nil
	}
}

// ApplyLncvOptions builds an LncvRequestContext from a set of functional
// options (WithTimeout, WithRetries, WithVerify), applied over the
// defaults in order. Exported so a requester outside this package (the
// CLI's lncv get/set actions) can configure its own wait behaviour without
// this package needing to expose LncvRequestContext's zero-value
// semantics directly.
func ApplyLncvOptions(options ...lncvOptions) *LncvRequestContext {
	ctx := defaultLncvContext()
	for _, opt := range options {
		_ = opt(ctx)
	}
	return ctx
}
