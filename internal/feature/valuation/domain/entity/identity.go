// Package entity defines the domain models for the valuation feature.
//
// Every value is built through a validating constructor that returns either a
// valid value or a typed domain error. Values are not mutated after construction.
package entity

import (
	"strconv"
	"strings"

	"bist_valuation/internal/feature/valuation/domain"
)

// Symbol is an exchange ticker (e.g. "THYAO", "ASELS").
type Symbol string

// NewSymbol trims raw and rejects empty input. Tickers are stored upper-case.
func NewSymbol(raw string) (Symbol, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", domain.NewValidationError("symbol", raw, domain.ErrCompanyCode)
	}
	return Symbol(strings.ToUpper(s)), nil
}

func (s Symbol) String() string { return string(s) }

// Name is a company or sector display name.
type Name string

// NewName trims raw and rejects empty input.
func NewName(raw string) (Name, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", domain.NewValidationError("name", raw, domain.ErrName)
	}
	return Name(s), nil
}

func (n Name) String() string { return string(n) }

// SectorID is the exchange-assigned sector classification id.
type SectorID int

// NewSectorID rejects non-positive ids.
func NewSectorID(id int) (SectorID, error) {
	if id <= 0 {
		return 0, domain.NewValidationError("sectorId", strconv.Itoa(id), domain.ErrSectorID)
	}
	return SectorID(id), nil
}

// ParseSectorID parses the value attribute of a sector dropdown option.
func ParseSectorID(raw string) (SectorID, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, domain.NewValidationError("sectorId", raw, domain.ErrSectorID)
	}
	return NewSectorID(id)
}

func (id SectorID) Int() int { return int(id) }

func (id SectorID) String() string { return strconv.Itoa(int(id)) }
