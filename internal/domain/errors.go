package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrNoData             = errors.New("no data available yet")
	ErrAllSourcesDown     = errors.New("all price sources failed")
	ErrStaleData          = errors.New("serving stale data")
	ErrRiskDenied         = errors.New("trade denied by risk authority")
	ErrRiskUnavailable    = errors.New("risk authority unreachable")
	ErrSubmissionFailed   = errors.New("transaction submission failed")
	ErrOpportunityExpired = errors.New("opportunity no longer current")
	ErrExecutionInFlight  = errors.New("execution already in flight for actor")
	ErrLockHeld           = errors.New("lock already held")
	ErrSigningFailed      = errors.New("signing failed")
)
