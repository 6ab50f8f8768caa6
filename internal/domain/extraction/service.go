package extraction

import (
	"context"
	"fmt"

	"belegwerk/internal/domain/documents/document"
	"belegwerk/pkg/logger"
)

// DocumentCreator persists documents built from extraction payloads.
type DocumentCreator interface {
	Create(ctx context.Context, doc *document.Document) error
}

// Service runs an extraction and turns a successful result into a stored
// document. A failed extraction returns its structured result untouched:
// nothing is persisted, the caller decides how to proceed.
type Service struct {
	analyzer  Analyzer
	documents DocumentCreator
	log       *logger.Logger
}

// NewService creates an extraction service.
func NewService(analyzer Analyzer, documents DocumentCreator, log *logger.Logger) *Service {
	return &Service{
		analyzer:  analyzer,
		documents: documents,
		log:       log.WithComponent("extraction.service"),
	}
}

// IngestFile analyzes an uploaded file and, on success, creates the
// extracted document in analyzed state. On extraction failure the Result
// carries the error and the returned document is nil.
func (s *Service) IngestFile(ctx context.Context, fileID string) (*document.Document, *Result, error) {
	res, err := s.analyzer.AnalyzeDocument(ctx, fileID)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze document: %w", err)
	}
	if !res.Success {
		s.log.WithContext(ctx).Warnw("extraction failed",
			"file_id", fileID,
			"error", res.Error,
		)
		return nil, res, nil
	}

	doc, err := BuildDocument(res.Data, fileID)
	if err != nil {
		return nil, res, err
	}
	if err := s.documents.Create(ctx, doc); err != nil {
		return nil, res, err
	}

	s.log.WithContext(ctx).Infow("document extracted",
		"file_id", fileID,
		"document_id", doc.ID.String(),
		"kind", string(doc.Kind),
		"items", len(doc.Items),
	)
	return doc, res, nil
}
