package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/dernekpanel/api/internal/domain"
	"github.com/dernekpanel/api/internal/services"
)

type stubDuplicates struct {
	mu         sync.Mutex
	result     domain.DuplicateCheckResult
	resultErr  error
	probe      domain.DuplicateProbe
	probeErr   error
	lastInput  domain.DuplicateCheckInput
	fullCalls  int
	probeCalls int
}

func (s *stubDuplicates) CheckDuplicates(_ context.Context, input domain.DuplicateCheckInput) (domain.DuplicateCheckResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fullCalls++
	s.lastInput = input
	return s.result, s.resultErr
}

func (s *stubDuplicates) CheckNationalIDDuplicate(_ context.Context, nationalID, excludeID string) (domain.DuplicateProbe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.probeCalls++
	s.lastInput = domain.DuplicateCheckInput{NationalID: nationalID, ExcludeID: excludeID}
	return s.probe, s.probeErr
}

func (s *stubDuplicates) InvalidateCache() {}

type stubBeneficiaries struct {
	created   domain.Beneficiary
	createErr error
	updated   domain.Beneficiary
	updateErr error
	found     domain.Beneficiary
	getErr    error
}

func (s *stubBeneficiaries) Create(context.Context, services.CreateBeneficiaryInput) (domain.Beneficiary, error) {
	return s.created, s.createErr
}

func (s *stubBeneficiaries) Update(context.Context, string, services.UpdateBeneficiaryInput) (domain.Beneficiary, error) {
	return s.updated, s.updateErr
}

func (s *stubBeneficiaries) Get(context.Context, string) (domain.Beneficiary, error) {
	return s.found, s.getErr
}

func newTestRouter(duplicates services.DuplicateService, beneficiaries services.BeneficiaryService) chi.Router {
	return NewRouter(RouterDeps{
		Beneficiaries: NewBeneficiaryHandlers(duplicates, beneficiaries),
		Health:        NewHealthHandlers(nil),
	})
}

func doJSON(t *testing.T, router chi.Router, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCheckDuplicateRejectsInvalidPayloads(t *testing.T) {
	router := newTestRouter(&stubDuplicates{}, &stubBeneficiaries{})

	cases := map[string]string{
		"empty body":       "",
		"empty object":     `{}`,
		"short tc":         `{"tc_no":"12345"}`,
		"alpha tc":         `{"tc_no":"1234567890a"}`,
		"short first name": `{"first_name":"A","last_name":"Demir"}`,
		"short last name":  `{"first_name":"Ayşe","last_name":"D"}`,
		"malformed json":   `{"tc_no":`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			rec := doJSON(t, router, http.MethodPost, "/beneficiaries/check-duplicate", body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCheckDuplicateFullCheck(t *testing.T) {
	duplicates := &stubDuplicates{
		result: domain.DuplicateCheckResult{
			HasDuplicates: true,
			Matches: []domain.DuplicateMatch{{
				ID:         "ben_01",
				Name:       "Mehmet Yılmaz",
				NationalID: "12345678901",
				MatchType:  domain.MatchExactNationalID,
				MatchScore: 100,
				CreatedAt:  time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
			}},
			Warnings: []string{"Bu TC Kimlik No ile kayıtlı kişi bulundu!"},
		},
	}
	router := newTestRouter(duplicates, &stubBeneficiaries{})

	rec := doJSON(t, router, http.MethodPost, "/beneficiaries/check-duplicate",
		`{"tc_no":"12345678901","exclude_id":"ben_99"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		HasDuplicates bool `json:"has_duplicates"`
		Matches       []struct {
			ID         string `json:"id"`
			MatchType  string `json:"match_type"`
			MatchScore int    `json:"match_score"`
		} `json:"matches"`
		Warnings []string `json:"warnings"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if !payload.HasDuplicates || len(payload.Matches) != 1 {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.Matches[0].MatchType != "exact_tc" || payload.Matches[0].MatchScore != 100 {
		t.Fatalf("unexpected match payload: %+v", payload.Matches[0])
	}
	if len(payload.Warnings) != 1 {
		t.Fatalf("unexpected warnings: %v", payload.Warnings)
	}
	if duplicates.lastInput.ExcludeID != "ben_99" {
		t.Fatalf("exclude_id not forwarded: %+v", duplicates.lastInput)
	}
}

func TestCheckDuplicateTcOnlyUsesProbe(t *testing.T) {
	duplicates := &stubDuplicates{
		probe: domain.DuplicateProbe{Exists: true, ExistingID: "ben_01", ExistingName: "Mehmet Yılmaz"},
	}
	router := newTestRouter(duplicates, &stubBeneficiaries{})

	rec := doJSON(t, router, http.MethodPost, "/beneficiaries/check-duplicate?type=tc_only",
		`{"tc_no":"12345678901"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload probeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if !payload.Exists || payload.ExistingID != "ben_01" {
		t.Fatalf("unexpected probe payload: %+v", payload)
	}
	if duplicates.probeCalls != 1 || duplicates.fullCalls != 0 {
		t.Fatalf("expected probe only, probe=%d full=%d", duplicates.probeCalls, duplicates.fullCalls)
	}
}

func TestCheckDuplicateTcOnlyRequiresNationalID(t *testing.T) {
	router := newTestRouter(&stubDuplicates{}, &stubBeneficiaries{})

	rec := doJSON(t, router, http.MethodPost, "/beneficiaries/check-duplicate?type=tc_only",
		`{"phone":"05551234567"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCheckDuplicateFailsClosed(t *testing.T) {
	duplicates := &stubDuplicates{resultErr: services.ErrDuplicateCheckUnavailable}
	router := newTestRouter(duplicates, &stubBeneficiaries{})

	rec := doJSON(t, router, http.MethodPost, "/beneficiaries/check-duplicate",
		`{"tc_no":"12345678901"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreateBeneficiaryEndpoint(t *testing.T) {
	beneficiaries := &stubBeneficiaries{
		created: domain.Beneficiary{
			ID:        "ben_01hxyz",
			FirstName: "Ayşe",
			LastName:  "Demir",
			Status:    "active",
			CreatedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		},
	}
	router := newTestRouter(&stubDuplicates{}, beneficiaries)

	rec := doJSON(t, router, http.MethodPost, "/beneficiaries",
		`{"first_name":"Ayşe","last_name":"Demir","tc_no":"12345678901"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Beneficiary struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"beneficiary"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if payload.Beneficiary.ID != "ben_01hxyz" || payload.Beneficiary.Name != "Ayşe Demir" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestCreateBeneficiaryMapsValidationError(t *testing.T) {
	beneficiaries := &stubBeneficiaries{
		createErr: fmt.Errorf("%w: first name must have at least 2 characters", services.ErrBeneficiaryInvalid),
	}
	router := newTestRouter(&stubDuplicates{}, beneficiaries)

	rec := doJSON(t, router, http.MethodPost, "/beneficiaries", `{"first_name":"A"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateBeneficiaryNotFoundEndpoint(t *testing.T) {
	beneficiaries := &stubBeneficiaries{updateErr: services.ErrBeneficiaryNotFound}
	router := newTestRouter(&stubDuplicates{}, beneficiaries)

	rec := doJSON(t, router, http.MethodPatch, "/beneficiaries/ben_missing", `{"phone":"05551234567"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetBeneficiaryEndpoint(t *testing.T) {
	beneficiaries := &stubBeneficiaries{
		found: domain.Beneficiary{ID: "ben_01", Name: "Mehmet Yılmaz"},
	}
	router := newTestRouter(&stubDuplicates{}, beneficiaries)

	req := httptest.NewRequest(http.MethodGet, "/beneficiaries/ben_01", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "Mehmet Yılmaz") {
		t.Fatalf("expected display name in payload: %s", rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&stubDuplicates{}, &stubBeneficiaries{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health payload: %s", rec.Body.String())
	}
}
