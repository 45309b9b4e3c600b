// Package ratelimit provides per-identity sliding-window admission
// control for the tool-invocation route.
//
// Unlike a token bucket, the sliding window counts requests within the
// trailing interval ending at "now", so a denied caller can be told
// exactly how long to wait before the oldest admitted request leaves
// the window. Identities with no recent requests are evicted by a
// background sweep to keep memory bounded in long-running processes.
package ratelimit
