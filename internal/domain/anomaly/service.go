package anomaly

import (
	"context"

	"belegwerk/internal/core/apperror"
	appctx "belegwerk/internal/core/context"
	"belegwerk/internal/core/id"
	"belegwerk/internal/core/tx"
	"belegwerk/internal/domain"
	"belegwerk/pkg/logger"
)

// Service provides the manual side of the anomaly lifecycle.
type Service struct {
	repo      Repository
	txManager tx.Manager
	log       *logger.Logger
}

// NewService creates an anomaly service.
func NewService(repo Repository, txManager tx.Manager, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		log:       log.WithComponent("anomaly.service"),
	}
}

// GetByID returns an anomaly.
func (s *Service) GetByID(ctx context.Context, anomalyID id.ID) (*Anomaly, error) {
	a, err := s.repo.GetByID(ctx, anomalyID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("Anomaly", anomalyID.String())
		}
		return nil, err
	}
	return a, nil
}

// List returns anomalies matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) (domain.ListResult[*Anomaly], error) {
	return s.repo.List(ctx, filter)
}

// Resolve marks an anomaly resolved by the acting user.
func (s *Service) Resolve(ctx context.Context, anomalyID id.ID) (*Anomaly, error) {
	var resolved *Anomaly
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, anomalyID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("Anomaly", anomalyID.String())
			}
			return err
		}

		if err := a.Resolve(appctx.GetUserID(ctx)); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, a); err != nil {
			return err
		}
		resolved = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithContext(ctx).Infow("anomaly resolved",
		"anomaly_id", anomalyID.String(),
		"type", string(resolved.Type),
	)
	return resolved, nil
}
