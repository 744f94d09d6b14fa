package proposals

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/turyasin/Proposal-App-Live/internal/companies"
)

// UnspecifiedCompanyName is shown and exported when a record carries neither
// a resolvable company id nor an embedded snapshot.
const UnspecifiedCompanyName = "Firma Belirtilmemiş"

// FilterCriteria narrows the archive listing. Zero values match everything.
type FilterCriteria struct {
	Query     string
	CompanyID int64
	Preparer  string
	Status    Status
}

// Filter returns the records matching every active criterion, preserving the
// input order. The free-text query matches case-insensitively against the
// primary product name or the proposal number; the data is Turkish, so case
// folding follows Turkish rules (dotted and dotless i).
func Filter(records []Proposal, criteria FilterCriteria) []Proposal {
	query := lowerTurkish(criteria.Query)

	result := make([]Proposal, 0, len(records))
	for i := range records {
		p := &records[i]
		if !matchesQuery(p, query) {
			continue
		}
		if criteria.CompanyID != 0 && p.ResolvedCompanyID() != criteria.CompanyID {
			continue
		}
		if criteria.Preparer != "" && p.Preparer != criteria.Preparer {
			continue
		}
		if criteria.Status != "" && p.Status.OrDefault() != criteria.Status {
			continue
		}
		result = append(result, *p)
	}
	return result
}

// DistinctPreparers collects the non-empty preparer names present in the
// collection, first occurrence order, duplicates removed.
func DistinctPreparers(records []Proposal) []string {
	seen := make(map[string]struct{}, len(records))
	preparers := make([]string, 0, len(records))
	for i := range records {
		name := records[i].Preparer
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		preparers = append(preparers, name)
	}
	return preparers
}

// ResolveCompanyName resolves the display name for a proposal's company.
// The foreign identifier wins when it points at a known company; an embedded
// snapshot name is the fallback for partially migrated records; otherwise the
// fixed placeholder is returned.
func ResolveCompanyName(list []companies.Company, p *Proposal) string {
	if id := p.ResolvedCompanyID(); id != 0 {
		for i := range list {
			if list[i].ID == id {
				return list[i].Name
			}
		}
	}
	if p.Company != nil && p.Company.Name != "" {
		return p.Company.Name
	}
	return UnspecifiedCompanyName
}

func matchesQuery(p *Proposal, loweredQuery string) bool {
	if loweredQuery == "" {
		return true
	}
	return strings.Contains(lowerTurkish(p.PrimaryProductName()), loweredQuery) ||
		strings.Contains(lowerTurkish(p.ProposalNo), loweredQuery)
}

func lowerTurkish(s string) string {
	if s == "" {
		return ""
	}
	return cases.Lower(language.Turkish).String(s)
}
