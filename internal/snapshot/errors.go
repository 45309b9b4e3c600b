package snapshot

import "errors"

var errNoImporter = errors.New("snapshot: no importer configured")
