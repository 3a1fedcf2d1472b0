// Package patcher coordinates which host methods are instrumented and when.
//
// A Candidate names one host method and a rewrite for it. Candidates that
// serve no event are unconditional and applied by Start. Candidates that
// serve events are applied by ApplyFor when the first handler subscribes to
// one of those events, unless the coordinator runs eagerly, in which case
// Start applies everything.
//
// Every candidate is in exactly one of two sets, pending or applied, and
// Apply is idempotent by membership. A failing candidate is logged and
// counted in the BatchResult; it never aborts the batch and never rolls back
// candidates applied before it. Rollback restores every original body and
// returns all candidates to pending.
package patcher
