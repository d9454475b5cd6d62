package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/eacouncil/membership/internal/intake"
	"github.com/eacouncil/membership/internal/models"
	apperrors "github.com/eacouncil/membership/pkg/errors"
	"github.com/eacouncil/membership/pkg/logger"
	"github.com/eacouncil/membership/pkg/metrics"
)

// DocumentService validates and records uploaded documents. Finalize is the
// idempotence point of the upload flow: re-sending the same bytes yields the
// original record as a conflict rather than a second row.
type DocumentService struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewDocumentService(db *gorm.DB) (*DocumentService, error) {
	if db == nil {
		return nil, fmt.Errorf("document service requires a database connection")
	}
	return &DocumentService{db: db, log: logger.WithModule("documents")}, nil
}

// FinalizeInput describes an upload the client has completed.
type FinalizeInput struct {
	ApplicantID   string
	ApplicationID *string
	FileKey       string
	FileName      string
	DocType       string
	MimeType      string
	Data          []byte
}

// DuplicateDetails is attached to the conflict error when the same content
// was already finalized.
type DuplicateDetails struct {
	ExistingID string `json:"existing_id"`
	FileName   string `json:"file_name"`
	DocType    string `json:"doc_type"`
	SHA256     string `json:"sha256"`
}

// Finalize validates the content and records the document. Validation
// failures are 400s carrying the individual check messages; duplicate
// content is a 409 carrying the existing document's identity.
func (s *DocumentService) Finalize(ctx context.Context, input FinalizeInput) (*models.UploadedDocument, error) {
	if input.ApplicantID == "" {
		return nil, apperrors.NewBadRequest("applicant_id is required")
	}
	if input.FileKey == "" {
		return nil, apperrors.NewBadRequest("file_key is required")
	}

	result := intake.Validate(input.Data, input.FileName, input.MimeType, input.DocType)
	if !result.Valid {
		metrics.DocumentValidations.WithLabelValues("rejected").Inc()
		return nil, apperrors.New("DOCUMENT_REJECTED", "document failed validation", 400).
			WithDetails(result.Errors)
	}

	var existing models.UploadedDocument
	err := s.db.WithContext(ctx).
		Where("sha256 = ?", result.FileInfo.SHA256).
		First(&existing).Error
	if err == nil {
		metrics.DocumentValidations.WithLabelValues("duplicate").Inc()
		return nil, apperrors.NewConflict("DUPLICATE_DOCUMENT", "this file has already been uploaded").
			WithDetails(DuplicateDetails{
				ExistingID: existing.ID,
				FileName:   existing.FileName,
				DocType:    existing.DocType,
				SHA256:     existing.SHA256,
			})
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	status := models.DocumentStatusClean
	if len(result.Warnings) > 0 {
		status = models.DocumentStatusFlagged
	}

	document := &models.UploadedDocument{
		ApplicantID:   input.ApplicantID,
		ApplicationID: input.ApplicationID,
		FileKey:       input.FileKey,
		FileName:      input.FileName,
		DocType:       input.DocType,
		MimeType:      input.MimeType,
		SHA256:        result.FileInfo.SHA256,
		SizeBytes:     result.FileInfo.SizeBytes,
		Status:        status,
		Warnings:      strings.Join(result.Warnings, "; "),
	}
	if err := s.db.WithContext(ctx).Create(document).Error; err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}

	metrics.DocumentValidations.WithLabelValues("accepted").Inc()
	s.log.Info("document finalized",
		zap.String("doc_type", document.DocType),
		zap.String("status", document.Status),
		zap.Int64("size_bytes", document.SizeBytes))
	return document, nil
}

// ListByApplicant returns an applicant's finalized documents.
func (s *DocumentService) ListByApplicant(ctx context.Context, applicantID string) ([]models.UploadedDocument, error) {
	var documents []models.UploadedDocument
	err := s.db.WithContext(ctx).
		Where("applicant_id = ?", applicantID).
		Order("created_at ASC").
		Find(&documents).Error
	if err != nil {
		return nil, apperrors.ErrInternalServer.WithInternal(err)
	}
	return documents, nil
}
