// Package mailqueue implements the outbound email queue: a persisted table of
// messages written by the account flows and drained by a periodic dispatch
// worker with a capped retry policy.
package mailqueue
