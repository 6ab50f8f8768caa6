package product

import (
	"context"
	"strings"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/id"
	"belegwerk/internal/core/tx"
	"belegwerk/internal/core/types"
	"belegwerk/internal/domain"
	"belegwerk/pkg/logger"
)

// Service provides product business logic on top of the generic catalog service.
type Service struct {
	*domain.CatalogService[*Product]

	repo      Repository
	txManager tx.Manager
	log       *logger.Logger
}

// NewService creates a product service.
func NewService(repo Repository, txManager tx.Manager, log *logger.Logger) *Service {
	s := &Service{
		CatalogService: domain.NewCatalogService(domain.CatalogServiceConfig[*Product]{
			Repo:       repo,
			TxManager:  txManager,
			EntityName: "Product",
		}),
		repo:      repo,
		txManager: txManager,
		log:       log.WithComponent("product.service"),
	}

	s.Hooks().OnBeforeCreate(func(ctx context.Context, p *Product) error {
		p.Name = strings.TrimSpace(p.Name)
		if p.Code == "" {
			p.Code = generateCode(p.ID.String())
		}
		if p.Category == "" {
			p.Category = GuessCategory(p.Name)
		}
		return nil
	})

	return s
}

// AdjustStock applies a manual stock correction and returns the updated product.
func (s *Service) AdjustStock(ctx context.Context, productID id.ID, delta types.Quantity) (*Product, error) {
	if delta.IsZero() {
		return nil, apperror.NewValidation("stock adjustment delta cannot be zero").
			WithDetail("field", "delta")
	}

	var updated *Product
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		p, err := s.repo.GetByID(ctx, productID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("Product", productID.String())
			}
			return err
		}

		p.AdjustStock(delta)
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Infow("stock adjusted",
		"product_id", productID.String(),
		"delta", delta.String(),
		"current_stock", updated.CurrentStock.String(),
	)
	return updated, nil
}

// ListLowStock returns products at or below their minimum stock level.
func (s *Service) ListLowStock(ctx context.Context) ([]*Product, error) {
	return s.repo.ListBelowMinStock(ctx)
}

// generateCode derives a short stable code from the entity ID.
func generateCode(entityID string) string {
	compact := strings.ReplaceAll(entityID, "-", "")
	if len(compact) > 8 {
		compact = compact[:8]
	}
	return "PRD-" + strings.ToUpper(compact)
}
