package firestore

import (
	"context"
	"errors"

	"google.golang.org/api/iterator"

	pfirestore "github.com/dernekpanel/api/internal/platform/firestore"
	"github.com/dernekpanel/api/internal/repositories"
)

// Registry wires the Firestore-backed repositories behind a shared provider.
type Registry struct {
	provider      *pfirestore.Provider
	beneficiaries *BeneficiaryRepository
	health        *HealthRepository
}

// NewRegistry constructs the repository registry over the given provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("repository registry requires firestore provider")
	}

	beneficiaries, err := NewBeneficiaryRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:      provider,
		beneficiaries: beneficiaries,
		health:        &HealthRepository{provider: provider},
	}, nil
}

// Beneficiaries returns the beneficiary repository.
func (r *Registry) Beneficiaries() repositories.BeneficiaryRepository {
	return r.beneficiaries
}

// Health returns the readiness probe repository.
func (r *Registry) Health() repositories.HealthRepository {
	return r.health
}

// Close releases the shared Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// HealthRepository verifies Firestore connectivity with a minimal read.
type HealthRepository struct {
	provider *pfirestore.Provider
}

// Ping issues a single-document read against the beneficiary collection.
func (h *HealthRepository) Ping(ctx context.Context) error {
	client, err := h.provider.Client(ctx)
	if err != nil {
		return err
	}
	iter := client.Collection(beneficiaryCollection).Limit(1).Documents(ctx)
	defer iter.Stop()
	if _, err := iter.Next(); err != nil && !errors.Is(err, iterator.Done) {
		return pfirestore.WrapError("health.ping", err)
	}
	return nil
}

// Ensure interface compliance.
var (
	_ repositories.Registry         = (*Registry)(nil)
	_ repositories.HealthRepository = (*HealthRepository)(nil)
)
