package entity

import (
	"regexp"
	"strconv"
	"strings"

	"bist_valuation/internal/feature/valuation/domain"
)

// Term is a fiscal reporting period. Balance terms always end on a quarter month.
type Term struct {
	Month int
	Year  int
}

var termPattern = regexp.MustCompile(`^(\d{1,2})/(\d{4})$`)

// ParseTerm parses an "M/YYYY" balance term such as "12/2024" or "6/2023".
// Only quarter-end months (3, 6, 9, 12) are accepted.
func ParseTerm(raw string) (Term, error) {
	m := termPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Term{}, domain.NewValidationError("balanceTerm", raw, domain.ErrTermFormat)
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])
	switch month {
	case 3, 6, 9, 12:
	default:
		return Term{}, domain.NewValidationError("balanceTerm", raw, domain.ErrTermFormat)
	}
	return Term{Month: month, Year: year}, nil
}

func (t Term) String() string {
	return strconv.Itoa(t.Month) + "/" + strconv.Itoa(t.Year)
}

// Before reports whether t is an earlier period than o.
func (t Term) Before(o Term) bool {
	if t.Year != o.Year {
		return t.Year < o.Year
	}
	return t.Month < o.Month
}

// LastFourTerms returns the current term and the three comparable terms
// preceding it, ordered oldest to newest.
func LastFourTerms(raw string) ([4]Term, error) {
	cur, err := ParseTerm(raw)
	if err != nil {
		return [4]Term{}, err
	}
	m, y := cur.Month, cur.Year

	var out [4]Term
	out[3] = Term{m, y}

	if m == 12 || m == 9 || m == 6 {
		out[2] = Term{m - 3, y}
	} else {
		out[2] = Term{12, y - 1}
	}

	switch {
	case m == 12 || m == 9:
		out[1] = Term{m - 6, y}
	case m == 6:
		out[1] = Term{12, y - 1}
	default:
		out[1] = Term{9, y - 1}
	}

	switch m {
	case 12:
		out[0] = Term{m - 9, y}
	case 9:
		out[0] = Term{12, y - 1}
	case 6:
		out[0] = Term{9, y - 1}
	default:
		out[0] = Term{6, y - 1}
	}
	return out, nil
}
