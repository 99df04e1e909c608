package domain

import "time"

// MatchType tags how a candidate record collided with the input.
type MatchType string

const (
	MatchExactNationalID MatchType = "exact_tc"
	MatchExactPhone      MatchType = "exact_phone"
	MatchSimilarName     MatchType = "similar_name"
	MatchSimilarAddress  MatchType = "similar_address"
)

// matchTypePriority fixes the ordering used both for warning derivation and for
// the "already matched, skip" rule across detection passes. Lower is stronger.
var matchTypePriority = map[MatchType]int{
	MatchExactNationalID: 0,
	MatchExactPhone:      1,
	MatchSimilarName:     2,
	MatchSimilarAddress:  3,
}

// MatchTypesByPriority lists all match types strongest first.
var MatchTypesByPriority = []MatchType{
	MatchExactNationalID,
	MatchExactPhone,
	MatchSimilarName,
	MatchSimilarAddress,
}

// Priority returns the rank of the match type, strongest first. Unknown types
// sort last.
func (t MatchType) Priority() int {
	if p, ok := matchTypePriority[t]; ok {
		return p
	}
	return len(matchTypePriority)
}

// Warning returns the fixed caseworker-facing warning text for the match type.
func (t MatchType) Warning() string {
	switch t {
	case MatchExactNationalID:
		return "Bu TC Kimlik No ile kayıtlı kişi bulundu!"
	case MatchExactPhone:
		return "Bu telefon numarası ile kayıtlı kişi bulundu!"
	case MatchSimilarName:
		return "Benzer isimde kayıt bulundu."
	case MatchSimilarAddress:
		return "Benzer adreste kayıt bulundu."
	}
	return ""
}

// DuplicateCheckInput is the candidate record under evaluation. Every field is
// optional; each present field activates its corresponding detection pass.
// ExcludeID carries the record's own ID during updates so it never matches
// itself.
type DuplicateCheckInput struct {
	NationalID string
	FirstName  string
	LastName   string
	Phone      string
	Address    string
	ExcludeID  string
}

// Empty reports whether no detection pass would run for the input.
func (in DuplicateCheckInput) Empty() bool {
	return in.NationalID == "" && in.FirstName == "" && in.LastName == "" &&
		in.Phone == "" && in.Address == ""
}

// DuplicateMatch is one detected collision against an existing record.
type DuplicateMatch struct {
	ID         string
	Name       string
	NationalID string
	Phone      string
	Address    string
	MatchType  MatchType
	MatchScore int
	CreatedAt  time.Time
}

// DuplicateCheckResult aggregates all matches found for one input. Matches are
// sorted by descending score and truncated; Warnings holds one fixed text per
// distinct match type present, strongest first.
type DuplicateCheckResult struct {
	HasDuplicates bool
	Matches       []DuplicateMatch
	Warnings      []string
}

// DuplicateProbe is the result of the fast single-field national-ID check.
type DuplicateProbe struct {
	Exists       bool
	ExistingID   string
	ExistingName string
}
