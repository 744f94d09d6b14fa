package proposals

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Status is the closed set of pipeline states a proposal can be in.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusSent      Status = "Proposal Sent"
	StatusWon       Status = "Won"
	StatusLost      Status = "Lost"
	StatusCancelled Status = "Cancelled"
)

// Valid reports whether s is a member of the status set.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSent, StatusWon, StatusLost, StatusCancelled:
		return true
	}
	return false
}

// OrDefault maps an unset status to Pending. Records created before the
// status field existed carry no value at all.
func (s Status) OrDefault() Status {
	if s == "" {
		return StatusPending
	}
	return s
}

// FlexID is a numeric identifier that historical records sometimes stored as
// a JSON string ("5") and sometimes as a number (5). It normalizes both to
// int64 on ingestion so that every later comparison is strict.
type FlexID int64

func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("proposals: parse identifier %q: %w", s, err)
		}
		*f = FlexID(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexID(n)
	return nil
}

func (f FlexID) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatInt(int64(f), 10)), nil
}

// Int64 returns the canonical identifier, zero when unset.
func (f FlexID) Int64() int64 { return int64(f) }

// Calculation is the pricing block produced by the proposal editor.
type Calculation struct {
	SuggestedPrice float64 `json:"suggested_price,omitempty"`
	PriceTRY       float64 `json:"price_try,omitempty"`
	CurrencyRate   float64 `json:"currency_rate,omitempty"`
	ProfitMargin   float64 `json:"profit_margin,omitempty"`
}

// ProductRef names the offered product. Only the name is required.
type ProductRef struct {
	Name string `json:"name"`
}

// LineItem is one product line within a proposal.
type LineItem struct {
	Product     ProductRef   `json:"product"`
	Quantity    int          `json:"quantity,omitempty"`
	Calculation *Calculation `json:"calculation,omitempty"`
	Price       float64      `json:"price,omitempty"`
}

// Qty returns the quantity with the documented default of 1.
func (li LineItem) Qty() int {
	if li.Quantity <= 0 {
		return 1
	}
	return li.Quantity
}

// CompanySnapshot is the embedded copy of company data that older records
// carry instead of a foreign identifier.
type CompanySnapshot struct {
	ID            FlexID `json:"id,omitempty"`
	Name          string `json:"name,omitempty"`
	ContactPerson string `json:"contact_person,omitempty"`
	Email         string `json:"email,omitempty"`
}

// Proposal is a quote issued to a company.
//
// Records created before multi-item support store a single product and its
// pricing directly on the proposal (the legacy fields below); newer records
// carry an ordered item list instead. ItemMode tells the two shapes apart.
type Proposal struct {
	ID           int64            `json:"id"`
	ProposalNo   string           `json:"proposalNo"`
	Version      string           `json:"version,omitempty"`
	Date         time.Time        `json:"date"`
	ValidityDays int              `json:"validityDays"`
	Status       Status           `json:"status,omitempty"`
	Preparer     string           `json:"preparer,omitempty"`
	CompanyID    FlexID           `json:"companyId,omitempty"`
	Company      *CompanySnapshot `json:"company,omitempty"`
	Items        []LineItem       `json:"items,omitempty"`

	// Legacy single-item fields.
	Product       *ProductRef  `json:"product,omitempty"`
	Quantity      int          `json:"quantity,omitempty"`
	Calculation   *Calculation `json:"calculation,omitempty"`
	TotalPrice    float64      `json:"totalPrice,omitempty"`
	TotalPriceTRY float64      `json:"totalPriceTry,omitempty"`

	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// ItemMode tags which of the two record shapes is authoritative.
type ItemMode int

const (
	// ModeLegacy: the single-item fields on the proposal apply.
	ModeLegacy ItemMode = iota
	// ModeMulti: the item list applies.
	ModeMulti
)

// Mode reports the authoritative shape of the record.
func (p *Proposal) Mode() ItemMode {
	if len(p.Items) > 0 {
		return ModeMulti
	}
	return ModeLegacy
}

// PrimaryProductName returns the product name shown in listings and matched
// by free-text search: the first item's product for multi-item records, the
// legacy product otherwise.
func (p *Proposal) PrimaryProductName() string {
	if p.Mode() == ModeMulti {
		return p.Items[0].Product.Name
	}
	if p.Product != nil {
		return p.Product.Name
	}
	return ""
}

// VersionLabel returns the version label with its documented default.
func (p *Proposal) VersionLabel() string {
	if p.Version == "" {
		return "v1.0"
	}
	return p.Version
}

// ResolvedCompanyID returns the canonical company identifier: the foreign id
// when present, otherwise the id carried by an embedded snapshot, else zero.
func (p *Proposal) ResolvedCompanyID() int64 {
	if p.CompanyID != 0 {
		return p.CompanyID.Int64()
	}
	if p.Company != nil {
		return p.Company.ID.Int64()
	}
	return 0
}

// TotalUSD resolves the proposal total in the primary currency, falling back
// from the explicit total to the calculation block, else zero.
func (p *Proposal) TotalUSD() float64 {
	if p.TotalPrice != 0 {
		return p.TotalPrice
	}
	if p.Calculation != nil {
		return p.Calculation.SuggestedPrice
	}
	return 0
}

// TotalTRY resolves the proposal total in the secondary currency.
func (p *Proposal) TotalTRY() float64 {
	if p.TotalPriceTRY != 0 {
		return p.TotalPriceTRY
	}
	if p.Calculation != nil {
		return p.Calculation.PriceTRY
	}
	return 0
}

// ValidUntil is the expiry of the validity period.
func (p *Proposal) ValidUntil() time.Time {
	return p.Date.AddDate(0, 0, p.ValidityDays)
}
