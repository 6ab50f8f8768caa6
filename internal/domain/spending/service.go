package spending

import (
	"context"
	"time"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/types"
	"belegwerk/pkg/logger"
)

// Service provides read access and booking for the spending register.
type Service struct {
	repo Repository
	log  *logger.Logger
}

// NewService creates a spending service.
func NewService(repo Repository, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		log:  log.WithComponent("spending.service"),
	}
}

// Book accumulates an approved invoice total into the document month.
func (s *Service) Book(ctx context.Context, documentDate time.Time, amount types.Money) error {
	year, month := Period(documentDate)
	if err := s.repo.Add(ctx, year, month, amount); err != nil {
		return err
	}

	s.log.WithContext(ctx).Infow("spending booked",
		"year", year,
		"month", int(month),
		"amount", amount.String(),
	)
	return nil
}

// Month returns the bucket for a single month. Months without bookings
// return a zero-amount record.
func (s *Service) Month(ctx context.Context, year int, month time.Month) (*Record, error) {
	if month < time.January || month > time.December {
		return nil, apperror.NewValidation("month must be between 1 and 12").
			WithDetail("field", "month")
	}

	rec, err := s.repo.Get(ctx, year, month)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return &Record{Year: year, Month: month, Amount: types.Zero()}, nil
	}
	return rec, nil
}

// Year returns all booked months of a year.
func (s *Service) Year(ctx context.Context, year int) ([]*Record, error) {
	return s.repo.ListYear(ctx, year)
}
