// Package engine implements the synthetic gesture dispatch engine.
//
// The engine turns one gesture request into exactly one call against the
// host's asynchronous injection primitive and waits, under bounded
// deadlines, for the host to report the outcome.
//
// ARCHITECTURE:
//
// Per-Session Dispatch Looper:
// Every connected session owns a single-goroutine Looper. A request becomes
// a unit of work on that looper; the unit runs until its outcome is final
// before the next one starts. This is what keeps host invocations from
// overlapping (hosts cancel overlapping gestures).
//
// Request Flow:
// 1. Caller passes the lifecycle gate (session present, host version ok)
// 2. Caller takes the serialization lock, a dispatch id and a pending entry
// 3. Unit posted to the dispatch looper
// 4. Unit posts the host invocation to the host loop (post timeout)
// 5. Host callback or completion timeout resolves the bridge
// 6. Winning resolution commits statistics, then releases the caller
//
// Callers running on the host loop get true as soon as the unit is posted;
// blocking there would freeze the host.
//
// CRITICAL PATTERNS:
//
// Single Resolution:
// The bridge result slot is set by compare-and-swap before the done
// channel closes. Late callbacks are no-ops.
//
// Pending Ownership:
// Terminal counters are bumped only by whoever removes the pending entry,
// so a request is never counted twice.
//
// Nothing crosses the public API as an error or panic. Failures are
// reported as false plus the registry's last failure reason.
package engine
