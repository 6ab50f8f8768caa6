package supplier

import (
	"context"
	"fmt"
	"strings"

	"belegwerk/internal/core/tx"
	"belegwerk/internal/domain"
	"belegwerk/pkg/logger"
)

// Service provides supplier business logic on top of the generic catalog service.
type Service struct {
	*domain.CatalogService[*Supplier]

	repo      Repository
	txManager tx.Manager
	log       *logger.Logger
}

// NewService creates a supplier service.
func NewService(repo Repository, txManager tx.Manager, log *logger.Logger) *Service {
	s := &Service{
		CatalogService: domain.NewCatalogService(domain.CatalogServiceConfig[*Supplier]{
			Repo:       repo,
			TxManager:  txManager,
			EntityName: "Supplier",
		}),
		repo:      repo,
		txManager: txManager,
		log:       log.WithComponent("supplier.service"),
	}

	// Auto-generate code when not provided.
	s.Hooks().OnBeforeCreate(func(ctx context.Context, sup *Supplier) error {
		if sup.Code == "" {
			sup.Code = generateCode(sup.ID.String())
		}
		sup.Name = strings.TrimSpace(sup.Name)
		return nil
	})

	return s
}

// ResolveByName returns the supplier with exactly this name, creating it
// with empty contact details when no match exists. Matching is exact and
// case-sensitive: "Metro AG" and "metro ag" are different suppliers.
// Returns true when a new supplier was created.
func (s *Service) ResolveByName(ctx context.Context, name string) (*Supplier, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Unbekannter Lieferant"
	}

	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, false, fmt.Errorf("find supplier by name: %w", err)
	}
	if existing != nil {
		return existing, false, nil
	}

	sup := NewSupplier(name)
	if err := s.Create(ctx, sup); err != nil {
		return nil, false, err
	}

	s.log.WithContext(ctx).Infow("supplier auto-created",
		"supplier_id", sup.ID.String(),
		"name", sup.Name,
	)
	return sup, true, nil
}

// generateCode derives a short stable code from the entity ID.
func generateCode(entityID string) string {
	compact := strings.ReplaceAll(entityID, "-", "")
	if len(compact) > 8 {
		compact = compact[:8]
	}
	return "SUP-" + strings.ToUpper(compact)
}
