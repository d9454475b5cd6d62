package services

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eacouncil/membership/internal/database/testutil"
	"github.com/eacouncil/membership/internal/intake"
	"github.com/eacouncil/membership/internal/models"
	apperrors "github.com/eacouncil/membership/pkg/errors"
)

func pdfBytes(filler string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	for buf.Len() < 400 {
		buf.WriteString(filler + "\n")
	}
	buf.WriteString("%%EOF\n")
	return buf.Bytes()
}

func newDocumentFixture(t *testing.T) (*DocumentService, string) {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	svc, err := NewDocumentService(db)
	require.NoError(t, err)

	applicant := &models.Applicant{
		Kind:           models.ApplicantKindIndividual,
		TrackingNumber: "MBR-APP-2026-0001",
		Email:          "jane@example.com",
	}
	require.NoError(t, db.Create(applicant).Error)
	return svc, applicant.ID
}

func TestFinalizeStoresDocument(t *testing.T) {
	svc, applicantID := newDocumentFixture(t)

	document, err := svc.Finalize(context.Background(), FinalizeInput{
		ApplicantID: applicantID,
		FileKey:     "uploads/abc123.pdf",
		FileName:    "certificate.pdf",
		DocType:     intake.DocTypeAcademicCertificate,
		MimeType:    "application/pdf",
		Data:        pdfBytes("certificate body"),
	})
	require.NoError(t, err)
	require.Equal(t, models.DocumentStatusClean, document.Status)
	require.Len(t, document.SHA256, 64)
	require.Empty(t, document.Warnings)
}

func TestFinalizeDuplicateContentConflicts(t *testing.T) {
	svc, applicantID := newDocumentFixture(t)
	data := pdfBytes("identical content")

	first, err := svc.Finalize(context.Background(), FinalizeInput{
		ApplicantID: applicantID,
		FileKey:     "uploads/key1.pdf",
		FileName:    "original.pdf",
		DocType:     intake.DocTypeAcademicCertificate,
		MimeType:    "application/pdf",
		Data:        data,
	})
	require.NoError(t, err)

	// Same bytes under a new name and key.
	_, err = svc.Finalize(context.Background(), FinalizeInput{
		ApplicantID: applicantID,
		FileKey:     "uploads/key2.pdf",
		FileName:    "renamed.pdf",
		DocType:     intake.DocTypeProofOfPayment,
		MimeType:    "application/pdf",
		Data:        data,
	})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 409, appErr.StatusCode)
	require.Equal(t, "DUPLICATE_DOCUMENT", appErr.Code)

	details, ok := appErr.Details.(DuplicateDetails)
	require.True(t, ok)
	require.Equal(t, first.ID, details.ExistingID)
	require.Equal(t, "original.pdf", details.FileName)

	documents, err := svc.ListByApplicant(context.Background(), applicantID)
	require.NoError(t, err)
	require.Len(t, documents, 1, "duplicate must not create a second row")
}

func TestFinalizeRejectsInvalidContent(t *testing.T) {
	svc, applicantID := newDocumentFixture(t)

	_, err := svc.Finalize(context.Background(), FinalizeInput{
		ApplicantID: applicantID,
		FileKey:     "uploads/bad.pdf",
		FileName:    "bad.pdf",
		DocType:     intake.DocTypeAcademicCertificate,
		MimeType:    "application/pdf",
		Data:        bytes.Repeat([]byte("not a pdf "), 50),
	})

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, 400, appErr.StatusCode)
	require.Equal(t, "DOCUMENT_REJECTED", appErr.Code)
	require.NotEmpty(t, appErr.Details)
}

func TestFinalizeFlagsDocumentsWithWarnings(t *testing.T) {
	svc, applicantID := newDocumentFixture(t)

	// A PDF without its %%EOF marker validates with a warning.
	truncated := append([]byte("%PDF-1.4\n"), bytes.Repeat([]byte{0x20}, 200)...)
	document, err := svc.Finalize(context.Background(), FinalizeInput{
		ApplicantID: applicantID,
		FileKey:     "uploads/truncated.pdf",
		FileName:    "truncated.pdf",
		DocType:     intake.DocTypeIDDocument,
		MimeType:    "application/pdf",
		Data:        truncated,
	})
	require.NoError(t, err)
	require.Equal(t, models.DocumentStatusFlagged, document.Status)
	require.Contains(t, document.Warnings, "end-of-file")
}

func TestFinalizeRequiresIdentity(t *testing.T) {
	svc, _ := newDocumentFixture(t)

	_, err := svc.Finalize(context.Background(), FinalizeInput{
		FileKey:  "uploads/x.pdf",
		FileName: "x.pdf",
		DocType:  intake.DocTypeIDDocument,
		MimeType: "application/pdf",
		Data:     pdfBytes("x"),
	})
	require.Error(t, err)
}
