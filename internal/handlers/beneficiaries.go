package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	domain "github.com/dernekpanel/api/internal/domain"
	"github.com/dernekpanel/api/internal/platform/httpx"
	"github.com/dernekpanel/api/internal/services"
)

const maxBeneficiaryRequestBody = 16 * 1024

// BeneficiaryHandlers exposes the beneficiary endpoints, including the
// duplicate checks used before registering or editing a record.
type BeneficiaryHandlers struct {
	duplicates    services.DuplicateService
	beneficiaries services.BeneficiaryService
}

// NewBeneficiaryHandlers constructs a beneficiary handler set.
func NewBeneficiaryHandlers(duplicates services.DuplicateService, beneficiaries services.BeneficiaryService) *BeneficiaryHandlers {
	return &BeneficiaryHandlers{
		duplicates:    duplicates,
		beneficiaries: beneficiaries,
	}
}

// Routes registers the beneficiary endpoints beneath /beneficiaries.
func (h *BeneficiaryHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Post("/beneficiaries/check-duplicate", h.checkDuplicate)
	r.Post("/beneficiaries", h.create)
	r.Get("/beneficiaries/{beneficiaryId}", h.get)
	r.Patch("/beneficiaries/{beneficiaryId}", h.update)
}

func (h *BeneficiaryHandlers) checkDuplicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.duplicates == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "duplicate check service not available", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxBeneficiaryRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req checkDuplicateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	input := domain.DuplicateCheckInput{
		NationalID: strings.TrimSpace(req.NationalID),
		FirstName:  strings.TrimSpace(req.FirstName),
		LastName:   strings.TrimSpace(req.LastName),
		Phone:      strings.TrimSpace(req.Phone),
		Address:    strings.TrimSpace(req.Address),
		ExcludeID:  strings.TrimSpace(req.ExcludeID),
	}

	if msg := validateCheckInput(input); msg != "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", msg, http.StatusBadRequest))
		return
	}

	if strings.TrimSpace(r.URL.Query().Get("type")) == "tc_only" {
		if input.NationalID == "" {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "tc_no is required for tc_only checks", http.StatusBadRequest))
			return
		}
		probe, err := h.duplicates.CheckNationalIDDuplicate(ctx, input.NationalID, input.ExcludeID)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("internal_error", "duplicate check failed", http.StatusInternalServerError))
			return
		}
		writeJSONResponse(w, http.StatusOK, probeResponse{
			Exists:       probe.Exists,
			ExistingID:   probe.ExistingID,
			ExistingName: probe.ExistingName,
		})
		return
	}

	result, err := h.duplicates.CheckDuplicates(ctx, input)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("dependency_unavailable", "duplicate check could not complete", http.StatusServiceUnavailable))
		return
	}

	writeJSONResponse(w, http.StatusOK, buildCheckDuplicateResponse(result))
}

func (h *BeneficiaryHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.beneficiaries == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "beneficiary service not available", http.StatusServiceUnavailable))
		return
	}

	body, err := readLimitedBody(r, maxBeneficiaryRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req createBeneficiaryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	created, err := h.beneficiaries.Create(ctx, services.CreateBeneficiaryInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		NationalID: req.NationalID,
		Phone:      req.Phone,
		Email:      req.Email,
		Address:    req.Address,
		City:       req.City,
		District:   req.District,
		FamilySize: req.FamilySize,
		Status:     req.Status,
	})
	if err != nil {
		writeBeneficiaryError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusCreated, beneficiaryResponse{Beneficiary: buildBeneficiaryPayload(created)})
}

func (h *BeneficiaryHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.beneficiaries == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "beneficiary service not available", http.StatusServiceUnavailable))
		return
	}

	beneficiaryID := strings.TrimSpace(chi.URLParam(r, "beneficiaryId"))
	if beneficiaryID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "beneficiary id is required", http.StatusBadRequest))
		return
	}

	beneficiary, err := h.beneficiaries.Get(ctx, beneficiaryID)
	if err != nil {
		writeBeneficiaryError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, beneficiaryResponse{Beneficiary: buildBeneficiaryPayload(beneficiary)})
}

func (h *BeneficiaryHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.beneficiaries == nil {
		httpx.WriteError(ctx, w, httpx.NewError("service_unavailable", "beneficiary service not available", http.StatusServiceUnavailable))
		return
	}

	beneficiaryID := strings.TrimSpace(chi.URLParam(r, "beneficiaryId"))
	if beneficiaryID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "beneficiary id is required", http.StatusBadRequest))
		return
	}

	body, err := readLimitedBody(r, maxBeneficiaryRequestBody)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	var req updateBeneficiaryRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return
	}

	updated, err := h.beneficiaries.Update(ctx, beneficiaryID, services.UpdateBeneficiaryInput{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		NationalID: req.NationalID,
		Phone:      req.Phone,
		Email:      req.Email,
		Address:    req.Address,
		City:       req.City,
		District:   req.District,
		FamilySize: req.FamilySize,
		Status:     req.Status,
	})
	if err != nil {
		writeBeneficiaryError(ctx, w, err)
		return
	}

	writeJSONResponse(w, http.StatusOK, beneficiaryResponse{Beneficiary: buildBeneficiaryPayload(updated)})
}

// validateCheckInput enforces the request shape: the detection passes
// themselves tolerate missing fields, but the HTTP surface rejects payloads
// that could not possibly produce a meaningful answer.
func validateCheckInput(input domain.DuplicateCheckInput) string {
	if input.Empty() {
		return "at least one of tc_no, first_name, last_name, phone or address is required"
	}
	if input.NationalID != "" && !isDigitString(input.NationalID, 11) {
		return "tc_no must be exactly 11 digits"
	}
	if input.FirstName != "" && utf8.RuneCountInString(input.FirstName) < 2 {
		return "first_name must have at least 2 characters"
	}
	if input.LastName != "" && utf8.RuneCountInString(input.LastName) < 2 {
		return "last_name must have at least 2 characters"
	}
	return ""
}

func writeBodyError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
	case errors.Is(err, errEmptyBody):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	}
}

func writeBeneficiaryError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrBeneficiaryInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrBeneficiaryNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "beneficiary not found", http.StatusNotFound))
	case errors.Is(err, services.ErrBeneficiaryUnavailable):
		httpx.WriteError(ctx, w, httpx.NewError("dependency_unavailable", "beneficiary store unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}

type checkDuplicateRequest struct {
	NationalID string `json:"tc_no"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	ExcludeID  string `json:"exclude_id"`
}

type probeResponse struct {
	Exists       bool   `json:"exists"`
	ExistingID   string `json:"existing_id,omitempty"`
	ExistingName string `json:"existing_name,omitempty"`
}

type checkDuplicateResponse struct {
	HasDuplicates bool                    `json:"has_duplicates"`
	Matches       []duplicateMatchPayload `json:"matches"`
	Warnings      []string                `json:"warnings"`
}

type duplicateMatchPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	NationalID string `json:"tc_no,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Address    string `json:"address,omitempty"`
	MatchType  string `json:"match_type"`
	MatchScore int    `json:"match_score"`
	CreatedAt  string `json:"created_at,omitempty"`
}

func buildCheckDuplicateResponse(result domain.DuplicateCheckResult) checkDuplicateResponse {
	matches := make([]duplicateMatchPayload, 0, len(result.Matches))
	for _, match := range result.Matches {
		matches = append(matches, duplicateMatchPayload{
			ID:         match.ID,
			Name:       match.Name,
			NationalID: match.NationalID,
			Phone:      match.Phone,
			Address:    match.Address,
			MatchType:  string(match.MatchType),
			MatchScore: match.MatchScore,
			CreatedAt:  formatTime(match.CreatedAt),
		})
	}
	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return checkDuplicateResponse{
		HasDuplicates: result.HasDuplicates,
		Matches:       matches,
		Warnings:      warnings,
	}
}

type createBeneficiaryRequest struct {
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	NationalID string `json:"tc_no"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
	Address    string `json:"address"`
	City       string `json:"city"`
	District   string `json:"district"`
	FamilySize int    `json:"family_size"`
	Status     string `json:"status"`
}

type updateBeneficiaryRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	NationalID *string `json:"tc_no"`
	Phone      *string `json:"phone"`
	Email      *string `json:"email"`
	Address    *string `json:"address"`
	City       *string `json:"city"`
	District   *string `json:"district"`
	FamilySize *int    `json:"family_size"`
	Status     *string `json:"status"`
}

type beneficiaryResponse struct {
	Beneficiary beneficiaryPayload `json:"beneficiary"`
}

type beneficiaryPayload struct {
	ID         string `json:"id"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Name       string `json:"name"`
	NationalID string `json:"tc_no,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Email      string `json:"email,omitempty"`
	Address    string `json:"address,omitempty"`
	City       string `json:"city,omitempty"`
	District   string `json:"district,omitempty"`
	FamilySize int    `json:"family_size,omitempty"`
	Status     string `json:"status,omitempty"`
	CreatedAt  string `json:"created_at,omitempty"`
}

func buildBeneficiaryPayload(b domain.Beneficiary) beneficiaryPayload {
	return beneficiaryPayload{
		ID:         b.ID,
		FirstName:  b.FirstName,
		LastName:   b.LastName,
		Name:       b.DisplayName(),
		NationalID: b.NationalID,
		Phone:      b.Phone,
		Email:      b.Email,
		Address:    b.Address,
		City:       b.City,
		District:   b.District,
		FamilySize: b.FamilySize,
		Status:     b.Status,
		CreatedAt:  formatTime(b.CreatedAt),
	}
}
