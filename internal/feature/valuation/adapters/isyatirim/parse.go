package isyatirim

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"bist_valuation/internal/feature/valuation/domain"
	"bist_valuation/internal/feature/valuation/domain/entity"
	"bist_valuation/internal/feature/valuation/usecase"
)

const (
	sectorDropdownSelector = "#ddlSektor"
	summaryBodySelector    = "#temelTBody_Ozet"
	financialsBodySelector = "#temelTBody_Finansal"
	sectorAveragesSelector = "#sectorAreaBigData"
	sectorAveragePEChild   = 1
	sectorAveragePBChild   = 4
)

// cellRow は <tr> 要素のセルを usecase.Row として公開します。
type cellRow struct {
	cells *goquery.Selection
}

func newCellRow(tr *goquery.Selection) cellRow {
	return cellRow{cells: tr.ChildrenFiltered("td,th")}
}

func (r cellRow) Cell(i int) (string, bool) {
	if i < 0 || i >= r.cells.Length() {
		return "", false
	}
	return strings.TrimSpace(r.cells.Eq(i).Text()), true
}

func parseSectorOptions(doc *goquery.Document) ([]usecase.SectorOption, error) {
	dropdown := doc.Find(sectorDropdownSelector).First()
	if dropdown.Length() == 0 {
		return nil, domain.NewNotFoundError(sectorDropdownSelector, "sector dropdown missing")
	}

	var out []usecase.SectorOption
	dropdown.Children().Each(func(_ int, s *goquery.Selection) {
		value, _ := s.Attr("value")
		out = append(out, usecase.SectorOption{
			Value: strings.TrimSpace(value),
			Text:  strings.TrimSpace(s.Text()),
		})
	})
	return out, nil
}

func parseSectorPage(doc *goquery.Document) (usecase.SectorPage, error) {
	summary := doc.Find(summaryBodySelector).First()
	if summary.Length() == 0 {
		return usecase.SectorPage{}, domain.NewNotFoundError(summaryBodySelector, "summary table missing")
	}
	summaryRows := summary.ChildrenFiltered("tr")
	financialRows := doc.Find(financialsBodySelector).First().ChildrenFiltered("tr")

	page := usecase.SectorPage{Rows: make([]usecase.RowPair, summaryRows.Length())}
	summaryRows.Each(func(i int, tr *goquery.Selection) {
		page.Rows[i].Summary = newCellRow(tr)
		if i < financialRows.Length() {
			page.Rows[i].Financials = newCellRow(financialRows.Eq(i))
		}
	})

	averages := doc.Find(sectorAveragesSelector).First()
	if averages.Length() > 0 {
		children := averages.Children()
		page.HasAverages = true
		page.AveragePE = strings.TrimSpace(children.Eq(sectorAveragePEChild).Text())
		page.AveragePB = strings.TrimSpace(children.Eq(sectorAveragePBChild).Text())
	}
	return page, nil
}

// 詳細ページでは決算期が "2024/9" の形式で表示されることがあります。
var yearFirstTerm = regexp.MustCompile(`^(\d{4})/(\d{1,2})$`)

func normalizeTerm(raw string) string {
	raw = strings.TrimSpace(raw)
	if m := yearFirstTerm.FindStringSubmatch(raw); m != nil {
		return strings.TrimLeft(m[2], "0") + "/" + m[1]
	}
	return raw
}

func firstText(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

func parseCompanyTag(doc *goquery.Document, cfg Config, symbol entity.Symbol) (usecase.CompanyTag, error) {
	tag := usecase.CompanyTag{
		Name:                 firstText(doc, cfg.NameSelector),
		LastBalanceTerm:      normalizeTerm(firstText(doc, cfg.TermSelector)),
		PublicOwnershipRatio: strings.TrimSpace(strings.TrimPrefix(firstText(doc, cfg.OwnershipSelector), "%")),
	}
	if tag.Name == "" && tag.LastBalanceTerm == "" {
		return usecase.CompanyTag{}, domain.NewNotFoundError("company tag", "detail page has no data for "+symbol.String())
	}
	return tag, nil
}
