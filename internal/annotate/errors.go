package annotate

import "errors"

// ErrExportNotReady means the session has no team and player selected or no records
var ErrExportNotReady = errors.New("export not ready")
