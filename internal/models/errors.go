package models

import (
	"errors"
	"fmt"
)

// ErrNoChartData indicates the provider returned an empty series, so there
// is nothing to render.
var ErrNoChartData = errors.New("no data available to chart")

// ErrAnalysisUnavailable indicates no text-generation client is configured.
var ErrAnalysisUnavailable = errors.New("analysis client not configured")

// ResolutionError reports that every exchange candidate was tried for a
// query without producing a usable quote. Ticker carries the uppercased
// query the probes were built from.
type ResolutionError struct {
	Ticker string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("could not fetch data for %s", e.Ticker)
}
