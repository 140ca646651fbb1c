package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Resolve classifies every bill in the record store against its
	// customer's payment series.
	Resolve(ctx context.Context) (*Resolution, error)
}

var ErrIntegrityViolated = errors.New("referential_integrity_violated")
