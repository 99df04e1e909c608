package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"

	domain "github.com/dernekpanel/api/internal/domain"
	"github.com/dernekpanel/api/internal/matching"
	"github.com/dernekpanel/api/internal/repositories"
)

var (
	errBeneficiaryRepositoryRequired = errors.New("beneficiary: repository is required")
	errBeneficiaryClockRequired      = errors.New("beneficiary: clock is required")
)

// ErrBeneficiaryInvalid indicates the caller provided data that fails validation.
var ErrBeneficiaryInvalid = errors.New("beneficiary: invalid input")

// ErrBeneficiaryNotFound indicates the requested record does not exist.
var ErrBeneficiaryNotFound = errors.New("beneficiary: not found")

// ErrBeneficiaryUnavailable indicates the store could not complete the write.
var ErrBeneficiaryUnavailable = errors.New("beneficiary: store unavailable")

const (
	beneficiaryIDPrefix  = "ben_"
	minNamePartLength    = 2
	nationalIDLength     = 11
	minAddressFieldRunes = 10
	normalizedPhoneLen   = 10
	defaultStatus        = "active"
)

// BeneficiaryService owns the beneficiary write path. Successful writes drop
// the duplicate probe cache so stale results never mask a fresh duplicate.
type BeneficiaryService interface {
	Create(ctx context.Context, input CreateBeneficiaryInput) (domain.Beneficiary, error)
	Update(ctx context.Context, beneficiaryID string, input UpdateBeneficiaryInput) (domain.Beneficiary, error)
	Get(ctx context.Context, beneficiaryID string) (domain.Beneficiary, error)
}

// CreateBeneficiaryInput carries the fields accepted when registering a new record.
type CreateBeneficiaryInput struct {
	FirstName  string
	LastName   string
	NationalID string
	Phone      string
	Email      string
	Address    string
	City       string
	District   string
	FamilySize int
	Status     string
}

// UpdateBeneficiaryInput carries partial updates; nil fields are left untouched.
type UpdateBeneficiaryInput struct {
	FirstName  *string
	LastName   *string
	NationalID *string
	Phone      *string
	Email      *string
	Address    *string
	City       *string
	District   *string
	FamilySize *int
	Status     *string
}

func (in UpdateBeneficiaryInput) empty() bool {
	return in.FirstName == nil && in.LastName == nil && in.NationalID == nil &&
		in.Phone == nil && in.Email == nil && in.Address == nil &&
		in.City == nil && in.District == nil && in.FamilySize == nil && in.Status == nil
}

// BeneficiaryServiceDeps wires the repository and duplicate service collaborators.
type BeneficiaryServiceDeps struct {
	Repository  repositories.BeneficiaryRepository
	Duplicates  DuplicateService
	Clock       func() time.Time
	IDGenerator func() string
	Logger      func(context.Context, string, map[string]any)
}

type beneficiaryService struct {
	repo       repositories.BeneficiaryRepository
	duplicates DuplicateService
	now        func() time.Time
	newID      func() string
	logger     func(context.Context, string, map[string]any)
}

// NewBeneficiaryService constructs a BeneficiaryService with the provided dependencies.
func NewBeneficiaryService(deps BeneficiaryServiceDeps) (BeneficiaryService, error) {
	if deps.Repository == nil {
		return nil, errBeneficiaryRepositoryRequired
	}

	clock := deps.Clock
	if clock == nil {
		return nil, errBeneficiaryClockRequired
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &beneficiaryService{
		repo:       deps.Repository,
		duplicates: deps.Duplicates,
		now:        func() time.Time { return clock().UTC() },
		newID:      func() string { return beneficiaryIDPrefix + strings.ToLower(idGen()) },
		logger:     logger,
	}, nil
}

// Create validates and persists a new beneficiary record.
func (s *beneficiaryService) Create(ctx context.Context, input CreateBeneficiaryInput) (domain.Beneficiary, error) {
	beneficiary := domain.Beneficiary{
		FirstName:  strings.TrimSpace(input.FirstName),
		LastName:   strings.TrimSpace(input.LastName),
		NationalID: strings.TrimSpace(input.NationalID),
		Phone:      strings.TrimSpace(input.Phone),
		Email:      strings.TrimSpace(input.Email),
		Address:    strings.TrimSpace(input.Address),
		City:       strings.TrimSpace(input.City),
		District:   strings.TrimSpace(input.District),
		FamilySize: input.FamilySize,
		Status:     strings.TrimSpace(input.Status),
	}
	if beneficiary.Status == "" {
		beneficiary.Status = defaultStatus
	}

	if err := validateBeneficiary(beneficiary, true); err != nil {
		return domain.Beneficiary{}, err
	}

	beneficiary.ID = s.newID()
	beneficiary.CreatedAt = s.now()
	if beneficiary.Phone != "" {
		beneficiary.Phone = matching.NormalizePhone(beneficiary.Phone)
	}

	if err := s.repo.Insert(ctx, beneficiary); err != nil {
		return domain.Beneficiary{}, fmt.Errorf("%w: insert: %v", ErrBeneficiaryUnavailable, err)
	}

	s.invalidateProbeCache()
	s.logger(ctx, "beneficiary created", map[string]any{"beneficiary_id": beneficiary.ID})
	return beneficiary, nil
}

// Update applies a partial update to an existing record.
func (s *beneficiaryService) Update(ctx context.Context, beneficiaryID string, input UpdateBeneficiaryInput) (domain.Beneficiary, error) {
	id := strings.TrimSpace(beneficiaryID)
	if id == "" {
		return domain.Beneficiary{}, fmt.Errorf("%w: beneficiary id is required", ErrBeneficiaryInvalid)
	}
	if input.empty() {
		return domain.Beneficiary{}, fmt.Errorf("%w: no fields to update", ErrBeneficiaryInvalid)
	}

	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Beneficiary{}, ErrBeneficiaryNotFound
		}
		return domain.Beneficiary{}, fmt.Errorf("%w: load: %v", ErrBeneficiaryUnavailable, err)
	}

	updated := applyUpdate(existing, input)
	if err := validateBeneficiary(updated, false); err != nil {
		return domain.Beneficiary{}, err
	}
	if input.Phone != nil && updated.Phone != "" {
		updated.Phone = matching.NormalizePhone(updated.Phone)
	}

	if err := s.repo.Update(ctx, updated); err != nil {
		return domain.Beneficiary{}, fmt.Errorf("%w: update: %v", ErrBeneficiaryUnavailable, err)
	}

	s.invalidateProbeCache()
	s.logger(ctx, "beneficiary updated", map[string]any{"beneficiary_id": updated.ID})
	return updated, nil
}

// Get fetches a single record by ID.
func (s *beneficiaryService) Get(ctx context.Context, beneficiaryID string) (domain.Beneficiary, error) {
	id := strings.TrimSpace(beneficiaryID)
	if id == "" {
		return domain.Beneficiary{}, fmt.Errorf("%w: beneficiary id is required", ErrBeneficiaryInvalid)
	}
	beneficiary, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if repositories.IsNotFound(err) {
			return domain.Beneficiary{}, ErrBeneficiaryNotFound
		}
		return domain.Beneficiary{}, fmt.Errorf("%w: load: %v", ErrBeneficiaryUnavailable, err)
	}
	return beneficiary, nil
}

func (s *beneficiaryService) invalidateProbeCache() {
	if s.duplicates != nil {
		s.duplicates.InvalidateCache()
	}
}

func applyUpdate(existing domain.Beneficiary, input UpdateBeneficiaryInput) domain.Beneficiary {
	setString := func(target *string, value *string) {
		if value != nil {
			*target = strings.TrimSpace(*value)
		}
	}
	setString(&existing.FirstName, input.FirstName)
	setString(&existing.LastName, input.LastName)
	setString(&existing.NationalID, input.NationalID)
	setString(&existing.Phone, input.Phone)
	setString(&existing.Email, input.Email)
	setString(&existing.Address, input.Address)
	setString(&existing.City, input.City)
	setString(&existing.District, input.District)
	setString(&existing.Status, input.Status)
	if input.FamilySize != nil {
		existing.FamilySize = *input.FamilySize
	}
	return existing
}

func validateBeneficiary(b domain.Beneficiary, requireIdentity bool) error {
	first, last := b.SplitName()
	if requireIdentity || first != "" {
		if utf8.RuneCountInString(first) < minNamePartLength {
			return fmt.Errorf("%w: first name must have at least %d characters", ErrBeneficiaryInvalid, minNamePartLength)
		}
	}
	if requireIdentity || last != "" {
		if utf8.RuneCountInString(last) < minNamePartLength {
			return fmt.Errorf("%w: last name must have at least %d characters", ErrBeneficiaryInvalid, minNamePartLength)
		}
	}

	if requireIdentity && b.NationalID == "" {
		return fmt.Errorf("%w: national id is required", ErrBeneficiaryInvalid)
	}
	if b.NationalID != "" && !isDigits(b.NationalID, nationalIDLength) {
		return fmt.Errorf("%w: national id must be exactly %d digits", ErrBeneficiaryInvalid, nationalIDLength)
	}

	if b.Phone != "" {
		normalized := matching.NormalizePhone(b.Phone)
		if !isDigits(normalized, normalizedPhoneLen) {
			return fmt.Errorf("%w: phone must normalise to %d digits", ErrBeneficiaryInvalid, normalizedPhoneLen)
		}
	}

	if b.Address != "" && utf8.RuneCountInString(b.Address) < minAddressFieldRunes {
		return fmt.Errorf("%w: address must have at least %d characters", ErrBeneficiaryInvalid, minAddressFieldRunes)
	}

	if b.FamilySize < 0 {
		return fmt.Errorf("%w: family size cannot be negative", ErrBeneficiaryInvalid)
	}
	return nil
}

func isDigits(value string, length int) bool {
	if len(value) != length {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
