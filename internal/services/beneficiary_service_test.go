package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	domain "github.com/dernekpanel/api/internal/domain"
)

type stubDuplicateService struct {
	mu            sync.Mutex
	invalidations int
}

func (s *stubDuplicateService) CheckDuplicates(context.Context, domain.DuplicateCheckInput) (domain.DuplicateCheckResult, error) {
	return domain.DuplicateCheckResult{}, nil
}

func (s *stubDuplicateService) CheckNationalIDDuplicate(context.Context, string, string) (domain.DuplicateProbe, error) {
	return domain.DuplicateProbe{}, nil
}

func (s *stubDuplicateService) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidations++
}

func (s *stubDuplicateService) invalidationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invalidations
}

func newTestBeneficiaryService(t *testing.T, repo *stubBeneficiaryRepo, duplicates *stubDuplicateService, clock *fakeClock) BeneficiaryService {
	t.Helper()
	svc, err := NewBeneficiaryService(BeneficiaryServiceDeps{
		Repository: repo,
		Duplicates: duplicates,
		Clock:      clock.Now,
	})
	if err != nil {
		t.Fatalf("NewBeneficiaryService returned error: %v", err)
	}
	return svc
}

func validCreateInput() CreateBeneficiaryInput {
	return CreateBeneficiaryInput{
		FirstName:  "Ayşe",
		LastName:   "Demir",
		NationalID: "12345678901",
		Phone:      "+90 555 123 45 67",
		Address:    "Cumhuriyet Mah. Atatürk Cad. No:5 Daire:3",
		City:       "Ankara",
		District:   "Çankaya",
		FamilySize: 4,
	}
}

func TestCreateBeneficiary(t *testing.T) {
	repo := newStubRepo()
	duplicates := &stubDuplicateService{}
	clock := newFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := newTestBeneficiaryService(t, repo, duplicates, clock)

	created, err := svc.Create(context.Background(), validCreateInput())
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if !strings.HasPrefix(created.ID, "ben_") {
		t.Fatalf("unexpected id: %s", created.ID)
	}
	if created.ID != strings.ToLower(created.ID) {
		t.Fatalf("expected lowercase id, got %s", created.ID)
	}
	if !created.CreatedAt.Equal(clock.Now()) {
		t.Fatalf("unexpected created_at: %s", created.CreatedAt)
	}
	if created.Phone != "5551234567" {
		t.Fatalf("expected normalised phone, got %q", created.Phone)
	}
	if created.Status != "active" {
		t.Fatalf("expected default status, got %q", created.Status)
	}
	if repo.count("Insert") != 1 {
		t.Fatalf("expected one insert, got %d", repo.count("Insert"))
	}
	if duplicates.invalidationCount() != 1 {
		t.Fatalf("expected probe cache invalidation after create, got %d", duplicates.invalidationCount())
	}
}

func TestCreateBeneficiaryValidation(t *testing.T) {
	repo := newStubRepo()
	duplicates := &stubDuplicateService{}
	svc := newTestBeneficiaryService(t, repo, duplicates, newFakeClock(time.Now()))

	cases := map[string]func(*CreateBeneficiaryInput){
		"short first name":     func(in *CreateBeneficiaryInput) { in.FirstName = "A" },
		"short last name":      func(in *CreateBeneficiaryInput) { in.LastName = "D" },
		"missing national id":  func(in *CreateBeneficiaryInput) { in.NationalID = "" },
		"short national id":    func(in *CreateBeneficiaryInput) { in.NationalID = "123456789" },
		"alpha national id":    func(in *CreateBeneficiaryInput) { in.NationalID = "1234567890a" },
		"malformed phone":      func(in *CreateBeneficiaryInput) { in.Phone = "not-a-phone" },
		"short address":        func(in *CreateBeneficiaryInput) { in.Address = "Kısa" },
		"negative family size": func(in *CreateBeneficiaryInput) { in.FamilySize = -1 },
	}

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := validCreateInput()
			mutate(&input)
			_, err := svc.Create(context.Background(), input)
			if !errors.Is(err, ErrBeneficiaryInvalid) {
				t.Fatalf("expected ErrBeneficiaryInvalid, got %v", err)
			}
		})
	}

	if repo.count("Insert") != 0 {
		t.Fatalf("invalid input must not reach the store, inserts=%d", repo.count("Insert"))
	}
	if duplicates.invalidationCount() != 0 {
		t.Fatal("invalid input must not invalidate the probe cache")
	}
}

func TestUpdateBeneficiaryNotFound(t *testing.T) {
	svc := newTestBeneficiaryService(t, newStubRepo(), &stubDuplicateService{}, newFakeClock(time.Now()))

	phone := "05551234567"
	_, err := svc.Update(context.Background(), "ben_missing", UpdateBeneficiaryInput{Phone: &phone})
	if !errors.Is(err, ErrBeneficiaryNotFound) {
		t.Fatalf("expected ErrBeneficiaryNotFound, got %v", err)
	}
}

func TestUpdateBeneficiaryPartial(t *testing.T) {
	existing := domain.Beneficiary{
		ID:         "ben_01",
		FirstName:  "Ayşe",
		LastName:   "Demir",
		NationalID: "12345678901",
		Phone:      "5551234567",
		City:       "Ankara",
		Status:     "active",
		CreatedAt:  time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	repo := newStubRepo(existing)
	duplicates := &stubDuplicateService{}
	svc := newTestBeneficiaryService(t, repo, duplicates, newFakeClock(time.Now()))

	phone := "+90 555 987 65 43"
	updated, err := svc.Update(context.Background(), "ben_01", UpdateBeneficiaryInput{Phone: &phone})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if updated.Phone != "5559876543" {
		t.Fatalf("expected normalised phone, got %q", updated.Phone)
	}
	if updated.FirstName != "Ayşe" || updated.City != "Ankara" {
		t.Fatalf("unrelated fields must survive the update: %+v", updated)
	}
	if repo.count("Update") != 1 {
		t.Fatalf("expected one store update, got %d", repo.count("Update"))
	}
	if duplicates.invalidationCount() != 1 {
		t.Fatalf("expected probe cache invalidation after update, got %d", duplicates.invalidationCount())
	}
}

func TestUpdateBeneficiaryRejectsEmptyPatch(t *testing.T) {
	svc := newTestBeneficiaryService(t, newStubRepo(), &stubDuplicateService{}, newFakeClock(time.Now()))

	_, err := svc.Update(context.Background(), "ben_01", UpdateBeneficiaryInput{})
	if !errors.Is(err, ErrBeneficiaryInvalid) {
		t.Fatalf("expected ErrBeneficiaryInvalid, got %v", err)
	}
}

func TestUpdateBeneficiaryValidatesNationalID(t *testing.T) {
	existing := domain.Beneficiary{
		ID:         "ben_01",
		FirstName:  "Ayşe",
		LastName:   "Demir",
		NationalID: "12345678901",
		CreatedAt:  time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	repo := newStubRepo(existing)
	svc := newTestBeneficiaryService(t, repo, &stubDuplicateService{}, newFakeClock(time.Now()))

	bad := "123"
	_, err := svc.Update(context.Background(), "ben_01", UpdateBeneficiaryInput{NationalID: &bad})
	if !errors.Is(err, ErrBeneficiaryInvalid) {
		t.Fatalf("expected ErrBeneficiaryInvalid, got %v", err)
	}
	if repo.count("Update") != 0 {
		t.Fatal("invalid patch must not reach the store")
	}
}
