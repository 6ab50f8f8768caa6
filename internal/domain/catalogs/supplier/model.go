package supplier

import (
	"context"
	"strings"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/entity"
)

// Supplier is the catalog of vendors that documents reference.
// Suppliers are resolved by exact name during approval and created lazily
// with empty contact details when no match exists.
type Supplier struct {
	entity.Catalog

	ContactPerson string `db:"contact_person" json:"contactPerson"`
	Phone         string `db:"phone" json:"phone"`
	Email         string `db:"email" json:"email"`
	Address       string `db:"address" json:"address"`
	Notes         string `db:"notes" json:"notes"`
}

// NewSupplier creates a supplier with the given name and no contact details.
func NewSupplier(name string) *Supplier {
	return &Supplier{
		Catalog: entity.NewCatalog("", name),
	}
}

// Validate implements entity.Validatable.
func (s *Supplier) Validate(ctx context.Context) error {
	if err := s.Catalog.Validate(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(s.Name) == "" {
		return apperror.NewValidation("supplier name is required").
			WithDetail("field", "name")
	}
	if s.Email != "" && !strings.Contains(s.Email, "@") {
		return apperror.NewValidation("invalid email format").
			WithDetail("field", "email")
	}
	return nil
}
