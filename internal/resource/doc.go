// Package resource throttles work that reaches outside the process:
// embedding calls are bounded by a semaphore and paced by a token bucket,
// text held by in-flight calls is accounted against a memory budget, and
// archive uploads share a byte-rate limit.
package resource
