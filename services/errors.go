package services

import "errors"

var (
	// ErrNoData marks a collector that ran cleanly but returned zero rows.
	ErrNoData = errors.New("collector returned no data")
	// ErrNothingCollected aborts a run in which no collector produced rows.
	ErrNothingCollected = errors.New("nothing collected")
)
