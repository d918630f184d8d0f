package pipeline

import "github.com/rotisserie/eris"

// Errors returned by the pipeline. Only ErrInvalidOptions and ErrTotalFailure
// reach callers of GatherLeads; the others are recorded and logged.
var (
	ErrInvalidOptions        = eris.New("pipeline: invalid options")
	ErrSourceUnavailable     = eris.New("pipeline: source unavailable")
	ErrEnrichmentUnavailable = eris.New("pipeline: enrichment unavailable")
	ErrTotalFailure          = eris.New("pipeline: every source call failed")
)
