package document

import (
	"context"
	"fmt"
	"strings"

	"belegwerk/internal/core/apperror"
	"belegwerk/internal/core/id"
	"belegwerk/internal/core/tx"
	"belegwerk/internal/domain/catalogs/supplier"
	"belegwerk/internal/domain/tasks"
	"belegwerk/pkg/logger"
)

// SupplierResolver binds free-text vendor names to supplier records.
type SupplierResolver interface {
	ResolveByName(ctx context.Context, name string) (*supplier.Supplier, bool, error)
}

// Service provides document business logic.
type Service struct {
	repo      Repository
	suppliers SupplierResolver
	queue     tasks.Queue
	txManager tx.Manager
	log       *logger.Logger
}

// NewService creates a document service.
func NewService(repo Repository, suppliers SupplierResolver, queue tasks.Queue, txManager tx.Manager, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		suppliers: suppliers,
		queue:     queue,
		txManager: txManager,
		log:       log.WithComponent("document.service"),
	}
}

// Create stores a new document with its items, binds the supplier by exact
// name (creating one on first sight) and schedules the duplicate-invoice
// and new-supplier checks. Everything happens in one transaction: either
// the document and its scheduled checks all exist, or none do.
func (s *Service) Create(ctx context.Context, doc *Document) error {
	doc.SupplierName = strings.TrimSpace(doc.SupplierName)
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		sup, created, err := s.suppliers.ResolveByName(ctx, doc.SupplierName)
		if err != nil {
			return fmt.Errorf("resolve supplier: %w", err)
		}
		supID := sup.ID
		doc.SupplierID = &supID

		if err := s.repo.Create(ctx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if len(doc.Items) > 0 {
			if err := s.repo.ReplaceItems(ctx, doc.ID, doc.Items); err != nil {
				return fmt.Errorf("save items: %w", err)
			}
		}

		if doc.Kind == KindInvoice && doc.InvoiceNumber != "" {
			task := tasks.Task{
				Type:          tasks.TypeDuplicateInvoiceCheck,
				AggregateType: "Document",
				AggregateID:   doc.ID,
				Payload:       tasks.DuplicateInvoiceCheck{DocumentID: doc.ID},
			}
			if err := s.queue.Enqueue(ctx, task); err != nil {
				return fmt.Errorf("enqueue duplicate check: %w", err)
			}
		}

		if created {
			docID := doc.ID
			task := tasks.Task{
				Type:          tasks.TypeNewSupplierCheck,
				AggregateType: "Supplier",
				AggregateID:   supID,
				Payload:       tasks.NewSupplierCheck{SupplierID: supID, DocumentID: &docID},
			}
			if err := s.queue.Enqueue(ctx, task); err != nil {
				return fmt.Errorf("enqueue new supplier check: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.log.WithContext(ctx).Infow("document created",
		"document_id", doc.ID.String(),
		"kind", string(doc.Kind),
		"supplier", doc.SupplierName,
		"items", len(doc.Items),
	)
	return nil
}

// GetByID returns the document with its items.
func (s *Service) GetByID(ctx context.Context, docID id.ID) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return nil, apperror.NewNotFound("Document", docID.String())
		}
		return nil, err
	}

	items, err := s.repo.GetItems(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("load items: %w", err)
	}
	doc.Items = items
	return doc, nil
}

// Update replaces the document header and its full item list.
// Approved documents are frozen and cannot be edited.
func (s *Service) Update(ctx context.Context, doc *Document) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, doc.ID)
		if err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("Document", doc.ID.String())
			}
			return err
		}
		if !current.CanModify() {
			return apperror.NewBusinessRule(apperror.CodeDocumentApproved,
				"Approved documents cannot be modified")
		}

		doc.Status = current.Status
		doc.Touch()
		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}
		return s.repo.ReplaceItems(ctx, doc.ID, doc.Items)
	})
}

// Delete removes the document and its items.
func (s *Service) Delete(ctx context.Context, docID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetByID(ctx, docID); err != nil {
			if apperror.IsNotFound(err) {
				return apperror.NewNotFound("Document", docID.String())
			}
			return err
		}
		return s.repo.Delete(ctx, docID)
	})
	if err != nil {
		return err
	}

	s.log.WithContext(ctx).Infow("document deleted", "document_id", docID.String())
	return nil
}

// List returns document headers matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Document, int64, error) {
	res, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return res.Items, res.TotalCount, nil
}
