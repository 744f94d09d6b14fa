package proposals

import "time"

type LineItemRequest struct {
	Product     ProductRef   `json:"product" validate:"required"`
	Quantity    int          `json:"quantity" validate:"gte=0"`
	Calculation *Calculation `json:"calculation,omitempty"`
	Price       float64      `json:"price" validate:"gte=0"`
}

type UpsertProposalRequest struct {
	ProposalNo   string            `json:"proposalNo" validate:"required,max=100"`
	Version      string            `json:"version" validate:"max=20"`
	Date         time.Time         `json:"date" validate:"required"`
	ValidityDays int               `json:"validityDays" validate:"gte=0,lte=365"`
	Status       Status            `json:"status,omitempty"`
	Preparer     string            `json:"preparer" validate:"max=200"`
	CompanyID    FlexID            `json:"companyId,omitempty"`
	Company      *CompanySnapshot  `json:"company,omitempty"`
	Items        []LineItemRequest `json:"items,omitempty" validate:"dive"`

	// Legacy single-item fields, accepted for records migrated from the
	// pre-multi-item format.
	Product       *ProductRef  `json:"product,omitempty"`
	Quantity      int          `json:"quantity" validate:"gte=0"`
	Calculation   *Calculation `json:"calculation,omitempty"`
	TotalPrice    float64      `json:"totalPrice" validate:"gte=0"`
	TotalPriceTRY float64      `json:"totalPriceTry" validate:"gte=0"`
}

func (r UpsertProposalRequest) toModel() Proposal {
	p := Proposal{
		ProposalNo:    r.ProposalNo,
		Version:       r.Version,
		Date:          r.Date,
		ValidityDays:  r.ValidityDays,
		Status:        r.Status,
		Preparer:      r.Preparer,
		CompanyID:     r.CompanyID,
		Company:       r.Company,
		Product:       r.Product,
		Quantity:      r.Quantity,
		Calculation:   r.Calculation,
		TotalPrice:    r.TotalPrice,
		TotalPriceTRY: r.TotalPriceTRY,
	}
	for _, item := range r.Items {
		p.Items = append(p.Items, LineItem{
			Product:     item.Product,
			Quantity:    item.Quantity,
			Calculation: item.Calculation,
			Price:       item.Price,
		})
	}
	return p
}

type UpdateStatusRequest struct {
	Status Status `json:"status" validate:"required"`
}
