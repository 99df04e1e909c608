package repositories

import (
	"context"
	"errors"

	domain "github.com/dernekpanel/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Beneficiaries() BeneficiaryRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
	IsQueryUnsupported() bool
}

// BeneficiaryRepository persists beneficiary records and serves the lookups
// used by duplicate detection. All list methods exclude the record identified
// by excludeID when it is non-empty, and cap results at limit.
type BeneficiaryRepository interface {
	Insert(ctx context.Context, beneficiary domain.Beneficiary) error
	Update(ctx context.Context, beneficiary domain.Beneficiary) error
	FindByID(ctx context.Context, beneficiaryID string) (domain.Beneficiary, error)

	// FindByNationalID returns records whose national identity number equals
	// the given value exactly.
	FindByNationalID(ctx context.Context, nationalID string, excludeID string, limit int) ([]domain.Beneficiary, error)

	// FindByPhone returns records whose stored phone field equals the given
	// value exactly. Backends without an index on the phone field report a
	// query-unsupported error.
	FindByPhone(ctx context.Context, phone string, excludeID string, limit int) ([]domain.Beneficiary, error)

	// ListRecent returns the most recently created records, newest first.
	ListRecent(ctx context.Context, excludeID string, limit int) ([]domain.Beneficiary, error)

	// ListBounded returns up to limit records in store order, without any
	// ordering requirement. Used by scans that must work even when the
	// created_at index is unavailable.
	ListBounded(ctx context.Context, excludeID string, limit int) ([]domain.Beneficiary, error)
}

// HealthRepository verifies backend connectivity for readiness probes.
type HealthRepository interface {
	Ping(ctx context.Context) error
}

// IsNotFound reports whether err categorises as a missing record.
func IsNotFound(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}

// IsConflict reports whether err categorises as a conflicting write.
func IsConflict(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsConflict()
}

// IsUnavailable reports whether err categorises as a transient backend outage.
func IsUnavailable(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsUnavailable()
}

// IsQueryUnsupported reports whether err means the backend cannot serve the
// query shape at all, for example because the field is not indexed.
func IsQueryUnsupported(err error) bool {
	var repoErr RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsQueryUnsupported()
}
