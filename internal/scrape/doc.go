// Package scrape imports fee figures from the published Victorian fee
// schedule pages. It is a replaceable one-shot importer: the snapshot service
// treats any failure here as "no fresh data" and falls back to cached or
// hard-coded tables.
package scrape
