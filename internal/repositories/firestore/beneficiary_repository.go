package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/dernekpanel/api/internal/domain"
	pfirestore "github.com/dernekpanel/api/internal/platform/firestore"
	"github.com/dernekpanel/api/internal/repositories"
)

const beneficiaryCollection = "beneficiaries"

// BeneficiaryRepository persists beneficiary records in Firestore.
type BeneficiaryRepository struct {
	base *pfirestore.BaseRepository[beneficiaryDocument]
}

// NewBeneficiaryRepository constructs a Firestore-backed beneficiary repository.
func NewBeneficiaryRepository(provider *pfirestore.Provider) (*BeneficiaryRepository, error) {
	if provider == nil {
		return nil, errors.New("beneficiary repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[beneficiaryDocument](provider, beneficiaryCollection, nil, nil)
	return &BeneficiaryRepository{base: base}, nil
}

// Insert stores a new beneficiary document under its pre-assigned ID.
func (r *BeneficiaryRepository) Insert(ctx context.Context, beneficiary domain.Beneficiary) error {
	id := strings.TrimSpace(beneficiary.ID)
	if id == "" {
		return errors.New("beneficiary repository: id is required")
	}
	_, err := r.base.Set(ctx, id, encodeBeneficiary(beneficiary))
	return err
}

// Update overwrites the stored document for an existing beneficiary.
func (r *BeneficiaryRepository) Update(ctx context.Context, beneficiary domain.Beneficiary) error {
	id := strings.TrimSpace(beneficiary.ID)
	if id == "" {
		return errors.New("beneficiary repository: id is required")
	}
	_, err := r.base.Set(ctx, id, encodeBeneficiary(beneficiary))
	return err
}

// FindByID fetches a single beneficiary by document ID.
func (r *BeneficiaryRepository) FindByID(ctx context.Context, beneficiaryID string) (domain.Beneficiary, error) {
	doc, err := r.base.Get(ctx, beneficiaryID)
	if err != nil {
		return domain.Beneficiary{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindByNationalID returns records with an exact national identity number match.
func (r *BeneficiaryRepository) FindByNationalID(ctx context.Context, nationalID string, excludeID string, limit int) ([]domain.Beneficiary, error) {
	trimmed := strings.TrimSpace(nationalID)
	if trimmed == "" {
		return nil, nil
	}
	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		query = query.Where("tc_no", "==", trimmed)
		query = excludeDocument(query, excludeID)
		return query.Limit(normalizeLimit(limit))
	})
	if err != nil {
		return nil, err
	}
	return toDomainSlice(docs), nil
}

// FindByPhone returns records whose stored phone equals the given value. The
// phone field may lack an index, in which case the error categorises as
// query-unsupported and callers fall back to a bounded scan.
func (r *BeneficiaryRepository) FindByPhone(ctx context.Context, phone string, excludeID string, limit int) ([]domain.Beneficiary, error) {
	trimmed := strings.TrimSpace(phone)
	if trimmed == "" {
		return nil, nil
	}
	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		query = query.Where("phone", "==", trimmed)
		query = excludeDocument(query, excludeID)
		return query.Limit(normalizeLimit(limit))
	})
	if err != nil {
		return nil, err
	}
	return toDomainSlice(docs), nil
}

// ListRecent returns the most recently created records, newest first. The
// exclusion is applied after the read because Firestore cannot combine a
// document-ID inequality with an ordering on another field.
func (r *BeneficiaryRepository) ListRecent(ctx context.Context, excludeID string, limit int) ([]domain.Beneficiary, error) {
	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.OrderBy("created_at", firestore.Desc).Limit(normalizeLimit(limit))
	})
	if err != nil {
		return nil, err
	}

	excluded := strings.TrimSpace(excludeID)
	results := make([]domain.Beneficiary, 0, len(docs))
	for _, doc := range docs {
		if excluded != "" && doc.ID == excluded {
			continue
		}
		results = append(results, doc.Data.toDomain(doc.ID))
	}
	return results, nil
}

// ListBounded returns up to limit records without an ordering clause, so it
// works even when the created_at index cannot be used.
func (r *BeneficiaryRepository) ListBounded(ctx context.Context, excludeID string, limit int) ([]domain.Beneficiary, error) {
	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Limit(normalizeLimit(limit))
	})
	if err != nil {
		return nil, err
	}

	excluded := strings.TrimSpace(excludeID)
	results := make([]domain.Beneficiary, 0, len(docs))
	for _, doc := range docs {
		if excluded != "" && doc.ID == excluded {
			continue
		}
		results = append(results, doc.Data.toDomain(doc.ID))
	}
	return results, nil
}

func excludeDocument(query firestore.Query, excludeID string) firestore.Query {
	trimmed := strings.TrimSpace(excludeID)
	if trimmed == "" {
		return query
	}
	return query.Where(firestore.DocumentID, "!=", trimmed)
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 1
	}
	return limit
}

func toDomainSlice(docs []pfirestore.Document[beneficiaryDocument]) []domain.Beneficiary {
	results := make([]domain.Beneficiary, 0, len(docs))
	for _, doc := range docs {
		results = append(results, doc.Data.toDomain(doc.ID))
	}
	return results
}

func encodeBeneficiary(b domain.Beneficiary) beneficiaryDocument {
	createdAt := b.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	return beneficiaryDocument{
		Name:       strings.TrimSpace(b.Name),
		FirstName:  strings.TrimSpace(b.FirstName),
		LastName:   strings.TrimSpace(b.LastName),
		NationalID: strings.TrimSpace(b.NationalID),
		Phone:      strings.TrimSpace(b.Phone),
		Email:      strings.TrimSpace(b.Email),
		Address:    strings.TrimSpace(b.Address),
		City:       strings.TrimSpace(b.City),
		District:   strings.TrimSpace(b.District),
		FamilySize: b.FamilySize,
		Status:     strings.TrimSpace(b.Status),
		CreatedAt:  createdAt.UTC(),
	}
}

type beneficiaryDocument struct {
	Name       string    `firestore:"name,omitempty"`
	FirstName  string    `firestore:"first_name,omitempty"`
	LastName   string    `firestore:"last_name,omitempty"`
	NationalID string    `firestore:"tc_no,omitempty"`
	Phone      string    `firestore:"phone,omitempty"`
	Email      string    `firestore:"email,omitempty"`
	Address    string    `firestore:"address,omitempty"`
	City       string    `firestore:"city,omitempty"`
	District   string    `firestore:"district,omitempty"`
	FamilySize int       `firestore:"family_size,omitempty"`
	Status     string    `firestore:"status,omitempty"`
	CreatedAt  time.Time `firestore:"created_at"`
}

func (d beneficiaryDocument) toDomain(id string) domain.Beneficiary {
	return domain.Beneficiary{
		ID:         id,
		Name:       d.Name,
		FirstName:  d.FirstName,
		LastName:   d.LastName,
		NationalID: d.NationalID,
		Phone:      d.Phone,
		Email:      d.Email,
		Address:    d.Address,
		City:       d.City,
		District:   d.District,
		FamilySize: d.FamilySize,
		Status:     d.Status,
		CreatedAt:  d.CreatedAt,
	}
}

// Ensure interface compliance.
var _ repositories.BeneficiaryRepository = (*BeneficiaryRepository)(nil)
