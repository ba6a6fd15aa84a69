package entity

import (
	"github.com/shopspring/decimal"
)

// Sector groups companies sharing an exchange classification id.
type Sector struct {
	ID        SectorID
	Name      Name
	AveragePE decimal.NullDecimal
	AveragePB decimal.NullDecimal
	Companies []Company
}

// NewSector builds a sector whose companies are de-duplicated by symbol.
// A later company with an already seen symbol replaces the earlier one in place.
func NewSector(id SectorID, name Name, averagePE, averagePB decimal.NullDecimal, companies []Company) (Sector, error) {
	if _, err := NewSectorID(int(id)); err != nil {
		return Sector{}, err
	}
	if _, err := NewName(string(name)); err != nil {
		return Sector{}, err
	}
	return Sector{
		ID:        id,
		Name:      name,
		AveragePE: averagePE,
		AveragePB: averagePB,
		Companies: dedupeCompanies(companies),
	}, nil
}

func dedupeCompanies(companies []Company) []Company {
	out := make([]Company, 0, len(companies))
	pos := make(map[Symbol]int, len(companies))
	for _, c := range companies {
		if i, ok := pos[c.Symbol]; ok {
			out[i] = c
			continue
		}
		pos[c.Symbol] = len(out)
		out = append(out, c)
	}
	return out
}

// SectorList is an ordered collection of sectors with unique ids.
// The zero value is an empty list ready to use.
type SectorList struct {
	sectors []Sector
	index   map[SectorID]int
}

// Add appends s, or replaces the sector already stored under s.ID while
// keeping its position. It reports whether an existing sector was replaced.
func (l *SectorList) Add(s Sector) (replaced bool) {
	if l.index == nil {
		l.index = make(map[SectorID]int)
	}
	if i, ok := l.index[s.ID]; ok {
		l.sectors[i] = s
		return true
	}
	l.index[s.ID] = len(l.sectors)
	l.sectors = append(l.sectors, s)
	return false
}

// Sectors returns the sectors in insertion order.
func (l *SectorList) Sectors() []Sector {
	return append([]Sector(nil), l.sectors...)
}

// Get returns the sector stored under id.
func (l *SectorList) Get(id SectorID) (Sector, bool) {
	i, ok := l.index[id]
	if !ok {
		return Sector{}, false
	}
	return l.sectors[i], true
}

func (l *SectorList) Len() int { return len(l.sectors) }

// CompanyCount returns the number of companies across all sectors.
func (l *SectorList) CompanyCount() int {
	n := 0
	for _, s := range l.sectors {
		n += len(s.Companies)
	}
	return n
}
