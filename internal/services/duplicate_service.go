package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	domain "github.com/dernekpanel/api/internal/domain"
	"github.com/dernekpanel/api/internal/matching"
	"github.com/dernekpanel/api/internal/platform/config"
	"github.com/dernekpanel/api/internal/platform/observability"
	"github.com/dernekpanel/api/internal/repositories"
)

var (
	errDuplicateRepositoryRequired = errors.New("duplicate_check: repository is required")
	errDuplicateClockRequired      = errors.New("duplicate_check: clock is required")
)

// ErrDuplicateCheckUnavailable indicates a detection pass could not complete. The
// full check fails closed so callers never mistake a backend outage for a
// clean record.
var ErrDuplicateCheckUnavailable = errors.New("duplicate_check: unavailable")

const (
	exactNationalIDScore = 100
	exactPhoneScore      = 95
)

// DuplicateService evaluates candidate beneficiary records against existing
// ones before they are saved.
type DuplicateService interface {
	// CheckDuplicates runs the full multi-pass detection over the input.
	CheckDuplicates(ctx context.Context, input domain.DuplicateCheckInput) (domain.DuplicateCheckResult, error)

	// CheckNationalIDDuplicate is the fast single-field probe used by
	// interactive form validation. It fails open on backend errors.
	CheckNationalIDDuplicate(ctx context.Context, nationalID, excludeID string) (domain.DuplicateProbe, error)

	// InvalidateCache drops all memoised probe results.
	InvalidateCache()
}

// DuplicateServiceDeps wires the repository, cache and tuning knobs for duplicate detection.
type DuplicateServiceDeps struct {
	Repository repositories.BeneficiaryRepository
	Cache      *ProbeCache
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
	Config     config.DedupConfig
}

type duplicateService struct {
	repo   repositories.BeneficiaryRepository
	cache  *ProbeCache
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
	cfg    config.DedupConfig
}

// NewDuplicateService constructs a DuplicateService with the provided dependencies.
func NewDuplicateService(deps DuplicateServiceDeps) (DuplicateService, error) {
	if deps.Repository == nil {
		return nil, errDuplicateRepositoryRequired
	}

	clock := deps.Clock
	if clock == nil {
		return nil, errDuplicateClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	cfg := deps.Config
	applyDedupDefaults(&cfg)

	cache := deps.Cache
	if cache == nil {
		cache = NewProbeCache(cfg.CacheTTL, cfg.CacheSweepSize, clock)
	}

	return &duplicateService{
		repo:   deps.Repository,
		cache:  cache,
		now:    func() time.Time { return clock().UTC() },
		logger: logger,
		cfg:    cfg,
	}, nil
}

func applyDedupDefaults(cfg *config.DedupConfig) {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.CacheSweepSize <= 0 {
		cfg.CacheSweepSize = 100
	}
	if cfg.ExactMatchLimit <= 0 {
		cfg.ExactMatchLimit = 5
	}
	if cfg.PhoneFallbackLimit <= 0 {
		cfg.PhoneFallbackLimit = 50
	}
	if cfg.NameScanLimit <= 0 {
		cfg.NameScanLimit = 100
	}
	if cfg.AddressScanLimit <= 0 {
		cfg.AddressScanLimit = 50
	}
	if cfg.NameThreshold <= 0 {
		cfg.NameThreshold = 80
	}
	if cfg.AddressThreshold <= 0 {
		cfg.AddressThreshold = 85
	}
	if cfg.MinAddressLength <= 0 {
		cfg.MinAddressLength = 20
	}
	if cfg.MaxMatches <= 0 {
		cfg.MaxMatches = 10
	}
}

// CheckDuplicates runs the four detection passes strongest first. Records
// already matched by an earlier pass are skipped by later ones, so each
// existing record appears at most once, tagged with its strongest match type.
func (s *duplicateService) CheckDuplicates(ctx context.Context, input domain.DuplicateCheckInput) (domain.DuplicateCheckResult, error) {
	input = trimInput(input)
	if input.Empty() {
		return domain.DuplicateCheckResult{}, nil
	}

	seen := make(map[string]struct{})
	var matches []domain.DuplicateMatch

	appendMatch := func(record domain.Beneficiary, matchType domain.MatchType, score int) {
		seen[record.ID] = struct{}{}
		matches = append(matches, domain.DuplicateMatch{
			ID:         record.ID,
			Name:       record.DisplayName(),
			NationalID: record.NationalID,
			Phone:      record.Phone,
			Address:    record.Address,
			MatchType:  matchType,
			MatchScore: score,
			CreatedAt:  record.CreatedAt,
		})
	}

	if input.NationalID != "" {
		records, err := s.repo.FindByNationalID(ctx, input.NationalID, input.ExcludeID, s.cfg.ExactMatchLimit)
		if err != nil {
			return domain.DuplicateCheckResult{}, fmt.Errorf("%w: national id pass: %v", ErrDuplicateCheckUnavailable, err)
		}
		for _, record := range records {
			appendMatch(record, domain.MatchExactNationalID, exactNationalIDScore)
		}
	}

	if input.Phone != "" {
		records, err := s.findPhoneMatches(ctx, input)
		if err != nil {
			return domain.DuplicateCheckResult{}, err
		}
		for _, record := range records {
			if _, ok := seen[record.ID]; ok {
				continue
			}
			appendMatch(record, domain.MatchExactPhone, exactPhoneScore)
		}
	}

	if input.FirstName != "" && input.LastName != "" {
		records, err := s.repo.ListRecent(ctx, input.ExcludeID, s.cfg.NameScanLimit)
		if err != nil {
			return domain.DuplicateCheckResult{}, fmt.Errorf("%w: name pass: %v", ErrDuplicateCheckUnavailable, err)
		}
		for _, record := range records {
			if _, ok := seen[record.ID]; ok {
				continue
			}
			first, last := record.SplitName()
			if first == "" && last == "" {
				continue
			}
			score := matching.NameSimilarity(input.FirstName, input.LastName, first, last)
			if score >= s.cfg.NameThreshold {
				appendMatch(record, domain.MatchSimilarName, score)
			}
		}
	}

	if utf8.RuneCountInString(input.Address) > s.cfg.MinAddressLength {
		records, err := s.repo.ListRecent(ctx, input.ExcludeID, s.cfg.AddressScanLimit)
		if err != nil {
			return domain.DuplicateCheckResult{}, fmt.Errorf("%w: address pass: %v", ErrDuplicateCheckUnavailable, err)
		}
		normalizedInput := matching.Normalize(input.Address)
		for _, record := range records {
			if _, ok := seen[record.ID]; ok {
				continue
			}
			address := matching.Normalize(record.Address)
			if address == "" {
				continue
			}
			score := matching.Similarity(normalizedInput, address)
			if score >= s.cfg.AddressThreshold {
				appendMatch(record, domain.MatchSimilarAddress, score)
			}
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].MatchScore > matches[j].MatchScore
	})
	if len(matches) > s.cfg.MaxMatches {
		matches = matches[:s.cfg.MaxMatches]
	}

	result := domain.DuplicateCheckResult{
		HasDuplicates: len(matches) > 0,
		Matches:       matches,
		Warnings:      deriveWarnings(matches),
	}

	s.logger(ctx, "duplicate check completed", map[string]any{
		"match_count":    len(result.Matches),
		"has_duplicates": result.HasDuplicates,
		"tc_no":          observability.MaskNationalID(input.NationalID),
		"phone":          observability.MaskPhone(input.Phone),
	})
	return result, nil
}

// findPhoneMatches prefers the indexed equality query and falls back to a
// bounded scan with normalised comparison only when the backend cannot serve
// the query shape at all. Transient outages are not retried here; they fail
// the whole check.
func (s *duplicateService) findPhoneMatches(ctx context.Context, input domain.DuplicateCheckInput) ([]domain.Beneficiary, error) {
	normalized := matching.NormalizePhone(input.Phone)
	if normalized == "" {
		return nil, nil
	}

	records, err := s.repo.FindByPhone(ctx, normalized, input.ExcludeID, s.cfg.ExactMatchLimit)
	if err == nil {
		return records, nil
	}
	if !repositories.IsQueryUnsupported(err) {
		return nil, fmt.Errorf("%w: phone pass: %v", ErrDuplicateCheckUnavailable, err)
	}

	s.logger(ctx, "phone equality query unsupported, scanning recent records", map[string]any{
		"scan_limit": s.cfg.PhoneFallbackLimit,
	})

	recent, err := s.repo.ListBounded(ctx, input.ExcludeID, s.cfg.PhoneFallbackLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: phone fallback scan: %v", ErrDuplicateCheckUnavailable, err)
	}

	var filtered []domain.Beneficiary
	for _, record := range recent {
		if record.Phone == "" {
			continue
		}
		if matching.NormalizePhone(record.Phone) == normalized {
			filtered = append(filtered, record)
		}
	}
	return filtered, nil
}

// CheckNationalIDDuplicate serves the interactive probe. A cache hit skips the
// datastore entirely; backend failures degrade to "no duplicate" because
// blocking data entry on an outage is worse than a missed warning here. The
// full check before save still fails closed.
func (s *duplicateService) CheckNationalIDDuplicate(ctx context.Context, nationalID, excludeID string) (domain.DuplicateProbe, error) {
	trimmed := strings.TrimSpace(nationalID)
	if trimmed == "" {
		return domain.DuplicateProbe{}, nil
	}

	key := ProbeCacheKey(trimmed, excludeID)
	if probe, ok := s.cache.Get(key); ok {
		return probe, nil
	}

	records, err := s.repo.FindByNationalID(ctx, trimmed, strings.TrimSpace(excludeID), 1)
	if err != nil {
		s.logger(ctx, "national id probe degraded to no-duplicate", map[string]any{
			"tc_no": observability.MaskNationalID(trimmed),
			"error": err.Error(),
		})
		return domain.DuplicateProbe{}, nil
	}

	probe := domain.DuplicateProbe{}
	if len(records) > 0 {
		probe = domain.DuplicateProbe{
			Exists:       true,
			ExistingID:   records[0].ID,
			ExistingName: records[0].DisplayName(),
		}
	}
	s.cache.Set(key, probe)
	return probe, nil
}

// InvalidateCache drops all memoised probe results.
func (s *duplicateService) InvalidateCache() {
	s.cache.Clear()
}

func trimInput(input domain.DuplicateCheckInput) domain.DuplicateCheckInput {
	return domain.DuplicateCheckInput{
		NationalID: strings.TrimSpace(input.NationalID),
		FirstName:  strings.TrimSpace(input.FirstName),
		LastName:   strings.TrimSpace(input.LastName),
		Phone:      strings.TrimSpace(input.Phone),
		Address:    strings.TrimSpace(input.Address),
		ExcludeID:  strings.TrimSpace(input.ExcludeID),
	}
}

func deriveWarnings(matches []domain.DuplicateMatch) []string {
	if len(matches) == 0 {
		return nil
	}
	present := make(map[domain.MatchType]struct{}, len(matches))
	for _, match := range matches {
		present[match.MatchType] = struct{}{}
	}
	var warnings []string
	for _, matchType := range domain.MatchTypesByPriority {
		if _, ok := present[matchType]; ok {
			warnings = append(warnings, matchType.Warning())
		}
	}
	return warnings
}
