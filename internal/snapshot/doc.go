// Package snapshot manages the versioned fee tables the estimator prices
// against. A Store persists snapshots as blobs (LevelDB locally), an Importer
// builds fresh ones from the published fee pages, and the Service arbitrates
// between cache, import and the hard-coded fallback so estimation always has
// a snapshot to work with.
package snapshot
