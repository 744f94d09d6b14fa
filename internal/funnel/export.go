// Package funnel flattens the proposal archive into the CSV report used for
// sales-pipeline analysis.
package funnel

import (
	"strconv"
	"strings"
	"time"

	"github.com/turyasin/Proposal-App-Live/internal/companies"
	"github.com/turyasin/Proposal-App-Live/internal/proposals"
)

// UnspecifiedProductName is exported when a line carries no product name.
const UnspecifiedProductName = "Ürün Belirtilmemiş"

// utf8BOM makes spreadsheet applications auto-detect UTF-8.
const utf8BOM = "\uFEFF"

var csvHeaders = []string{
	"Teklif No", "Versiyon", "Tarih", "Geçerlilik Tarihi", "Teklif Durumu", "Firma", "İlgili Kişi",
	"Hazırlayan", "Ürün", "Miktar", "Birim Fiyat ($)", "Kalem Tutarı ($)",
	"Teklif Toplamı ($)", "Kalem Tutarı (TL)", "Teklif Toplamı (TL)", "Kur", "Kar Marjı (%)",
}

// Export renders the funnel CSV for the given records: a header row plus one
// row per line item, every field double-quoted, prefixed with a UTF-8 BOM.
// Output is deterministic for a fixed input.
func Export(records []proposals.Proposal, companyList []companies.Company) []byte {
	return Render(Rows(records, companyList))
}

// Render serializes already-flattened rows under the header row.
func Render(rows [][]string) []byte {
	var b strings.Builder
	b.WriteString(utf8BOM)
	b.WriteString(joinRow(csvHeaders))
	for _, row := range rows {
		b.WriteByte('\n')
		b.WriteString(joinRow(row))
	}
	return []byte(b.String())
}

// Rows flattens each proposal into one row per line item. Legacy records
// contribute a single row synthesized from their single-item fields.
func Rows(records []proposals.Proposal, companyList []companies.Company) [][]string {
	var rows [][]string
	for i := range records {
		rows = append(rows, proposalRows(&records[i], companyList)...)
	}
	return rows
}

func proposalRows(p *proposals.Proposal, companyList []companies.Company) [][]string {
	mode := p.Mode()

	var items []proposals.LineItem
	switch mode {
	case proposals.ModeMulti:
		items = p.Items
	case proposals.ModeLegacy:
		item := proposals.LineItem{
			Quantity:    p.Quantity,
			Calculation: p.Calculation,
			Price:       p.TotalUSD(),
		}
		if p.Product != nil {
			item.Product = *p.Product
		}
		items = []proposals.LineItem{item}
	}

	totalUSD := p.TotalUSD()
	totalTRY := p.TotalTRY()
	companyName := proposals.ResolveCompanyName(companyList, p)
	contactPerson := ""
	if p.Company != nil {
		contactPerson = p.Company.ContactPerson
	}
	issueDate := formatDate(p.Date)
	validUntil := formatDate(p.ValidUntil())

	rows := make([][]string, 0, len(items))
	for _, item := range items {
		qty := item.Qty()

		// Item totals come from the item's own calculation when present.
		// A calculation-less item of a genuinely multi-item record stays at
		// zero: estimating from the proposal total would fabricate numbers
		// across unrelated items. Legacy records fall back to the proposal
		// total.
		var unitPrice, itemTotal float64
		switch {
		case item.Calculation != nil && item.Calculation.SuggestedPrice != 0:
			itemTotal = item.Calculation.SuggestedPrice
			unitPrice = itemTotal / float64(qty)
		case mode == proposals.ModeMulti:
			// missing data, totals stay zero
		default:
			itemTotal = totalUSD
			unitPrice = itemTotal / float64(qty)
		}

		rate := fallbackRate(item.Calculation, p.Calculation)
		margin := fallbackMargin(item.Calculation, p.Calculation)
		itemTotalTRY := itemTotal * rateOrOne(rate)

		productName := item.Product.Name
		if productName == "" {
			productName = UnspecifiedProductName
		}

		rows = append(rows, []string{
			p.ProposalNo,
			p.VersionLabel(),
			issueDate,
			validUntil,
			string(p.Status.OrDefault()),
			companyName,
			contactPerson,
			p.Preparer,
			productName,
			strconv.Itoa(qty),
			formatMoney(unitPrice),
			formatMoney(itemTotal),
			formatMoney(totalUSD),
			formatMoney(itemTotalTRY),
			formatMoney(totalTRY),
			formatNumber(rate),
			formatNumber(margin),
		})
	}
	return rows
}

// Filename builds the suggested download name for an export taken at t,
// with hyphens replacing the Turkish dot date separators.
func Filename(t time.Time) string {
	return "Teklif_Funnel_" + t.Format("02-01-2006") + ".csv"
}

func fallbackRate(item, record *proposals.Calculation) float64 {
	if item != nil && item.CurrencyRate != 0 {
		return item.CurrencyRate
	}
	if record != nil && record.CurrencyRate != 0 {
		return record.CurrencyRate
	}
	return 0
}

func fallbackMargin(item, record *proposals.Calculation) float64 {
	if item != nil && item.ProfitMargin != 0 {
		return item.ProfitMargin
	}
	if record != nil && record.ProfitMargin != 0 {
		return record.ProfitMargin
	}
	return 0
}

// rateOrOne guards the TRY conversion against a missing rate; multiplying by
// zero would zero out an otherwise known item total.
func rateOrOne(rate float64) float64 {
	if rate == 0 {
		return 1
	}
	return rate
}

func joinRow(cells []string) string {
	quoted := make([]string, len(cells))
	for i, cell := range cells {
		quoted[i] = `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
	}
	return strings.Join(quoted, ",")
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatDate(t time.Time) string {
	return t.Format("02.01.2006")
}
