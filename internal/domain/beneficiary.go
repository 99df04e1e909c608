package domain

import (
	"strings"
	"time"
)

// Beneficiary is a read-only snapshot of a beneficiary record as stored in the
// beneficiaries collection. Older records carry a single combined Name field;
// newer ones split FirstName/LastName.
type Beneficiary struct {
	ID         string
	Name       string
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
	CreatedAt  time.Time
}

// UnnamedPlaceholder is shown when a record carries no usable name at all.
const UnnamedPlaceholder = "İsimsiz"

// DisplayName builds the human-readable name, preferring the split fields and
// falling back to the combined name, then to the placeholder.
func (b Beneficiary) DisplayName() string {
	full := strings.TrimSpace(strings.TrimSpace(b.FirstName) + " " + strings.TrimSpace(b.LastName))
	if full != "" {
		return full
	}
	if name := strings.TrimSpace(b.Name); name != "" {
		return name
	}
	return UnnamedPlaceholder
}

// SplitName returns first/last name components, deriving them from the
// combined Name field when the split fields are absent.
func (b Beneficiary) SplitName() (first, last string) {
	first = strings.TrimSpace(b.FirstName)
	last = strings.TrimSpace(b.LastName)
	if first != "" || last != "" {
		return first, last
	}
	parts := strings.Fields(b.Name)
	if len(parts) == 0 {
		return "", ""
	}
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}
