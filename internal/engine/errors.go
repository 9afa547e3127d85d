package engine

import "errors"

// ErrNoScan is returned before the first successful scan
var ErrNoScan = errors.New("no scan has completed yet")
