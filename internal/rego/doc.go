// Package rego holds the domain model and the estimation engine for Victorian
// vehicle registration costs.
//
// The engine is a two-stage pure pipeline. Normalize validates a raw request,
// fills category defaults and records what was inferred or left unknown.
// Estimate prices a normalized request against an immutable fee snapshot,
// producing itemized line items, totals and a confidence score. Neither stage
// holds state between calls, so results are deterministic for a given
// request/snapshot pair.
package rego
