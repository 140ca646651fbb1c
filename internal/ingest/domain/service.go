package domain

import (
	"context"
	"errors"

	portfoliodomain "github.com/smallbiznis/arrears/internal/portfolio/domain"
	"github.com/smallbiznis/arrears/pkg/db/pagination"
)

type Service interface {
	// Run replaces the record store contents with the CSV feeds and
	// returns the batch summary.
	Run(ctx context.Context, req RunRequest) (*Summary, error)

	// History lists past import runs, newest first.
	History(ctx context.Context, page pagination.Pagination) ([]*portfoliodomain.ImportRun, int64, error)
}

var (
	ErrMissingCustomers  = errors.New("customers_feed_missing")
	ErrIntegrityViolated = errors.New("referential_integrity_violated")
	ErrDuplicateRecords  = errors.New("duplicate_records")
)
