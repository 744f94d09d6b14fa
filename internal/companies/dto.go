package companies

type UpsertCompanyRequest struct {
	Name          string  `json:"name" validate:"required,max=200"`
	ContactPerson *string `json:"contact_person,omitempty" validate:"omitempty,max=200"`
	Email         *string `json:"email,omitempty" validate:"omitempty,email"`
}

func (r UpsertCompanyRequest) toModel() Company {
	return Company{
		Name:          r.Name,
		ContactPerson: r.ContactPerson,
		Email:         r.Email,
	}
}
