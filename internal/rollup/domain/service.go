package domain

import "context"

type Service interface {
	// Rollup resolves the current outcome set and aggregates it along
	// the given dimension.
	Rollup(ctx context.Context, dimension Dimension) ([]SegmentRollup, error)

	// Summary rolls the whole outcome set into portfolio totals.
	Summary(ctx context.Context) (*PortfolioSummary, error)

	// ActionVolumes counts collection actions by action type, most
	// frequent first.
	ActionVolumes(ctx context.Context) ([]ActionVolume, error)
}
