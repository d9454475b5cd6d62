package intake

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// fakePDF builds a minimal but structurally plausible PDF payload.
func fakePDF(size int) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")
	for buf.Len() < size-6 {
		buf.WriteString("0 obj\n")
	}
	buf.WriteString("%%EOF\n")
	return buf.Bytes()
}

func fakeJPEG(size int, withEOI bool) []byte {
	data := append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{0x01}, size)...)
	if withEOI {
		data = append(data, 0xFF, 0xD9)
	}
	return data
}

func TestValidateAcceptsWellFormedPDF(t *testing.T) {
	data := fakePDF(2048)
	result := Validate(data, "certificate.pdf", "application/pdf", DocTypeAcademicCertificate)

	require.True(t, result.Valid, "errors: %v", result.Errors)
	require.Empty(t, result.Errors)
	require.Equal(t, TypePDF, result.FileInfo.DetectedType)
	require.Len(t, result.FileInfo.SHA256, 64)
	require.EqualValues(t, len(data), result.FileInfo.SizeBytes)
}

func TestValidateRejectsWrongLeadingMagic(t *testing.T) {
	// Declared PDF whose first bytes are not %PDF must be a hard error.
	data := append([]byte("NOTAPDF!"), bytes.Repeat([]byte{0x20}, 200)...)
	result := Validate(data, "certificate.pdf", "application/pdf", DocTypeAcademicCertificate)

	require.False(t, result.Valid)
	require.Condition(t, func() bool {
		for _, e := range result.Errors {
			if strings.Contains(e, "does not match declared type") {
				return true
			}
		}
		return false
	}, "expected structural error, got %v", result.Errors)
}

func TestValidateRejectsTinyFiles(t *testing.T) {
	result := Validate([]byte("%PDF tiny"), "doc.pdf", "application/pdf", DocTypeIDDocument)

	require.False(t, result.Valid)
	require.Contains(t, result.Errors[0], "file too small")

	// Short-circuits before any other check.
	require.Len(t, result.Errors, 1)
}

func TestValidateRejectsOversizedFiles(t *testing.T) {
	result := Validate(fakeJPEG(3*mb, true), "photo.jpg", "image/jpeg", DocTypePhoto)

	require.False(t, result.Valid)
	require.Condition(t, func() bool {
		for _, e := range result.Errors {
			if strings.Contains(e, "exceeds maximum size") {
				return true
			}
		}
		return false
	})
}

func TestValidateRejectsDisallowedExtensionAndMime(t *testing.T) {
	result := Validate(fakePDF(1024), "listing.csv", "text/csv", DocTypePhoto)

	require.False(t, result.Valid)
	require.Len(t, result.Errors, 2, "extension and mime rejection: %v", result.Errors)
}

func TestValidateRejectsDangerousFilenames(t *testing.T) {
	cases := []string{
		"invoice.pdf.exe",
		"../../etc/passwd",
		"run.bat",
	}
	for _, name := range cases {
		result := Validate(fakePDF(512), name, "application/pdf", DocTypeProofOfPayment)
		require.False(t, result.Valid, "expected %q to be rejected", name)
	}
}

func TestValidateTextScanRejectsInjection(t *testing.T) {
	payload := []byte(strings.Repeat("benign line\n", 20) + "<script>alert(1)</script>")
	result := Validate(payload, "notes.txt", "text/plain", DocTypeOther)

	require.False(t, result.Valid)
	require.Contains(t, result.Errors[0], "disallowed pattern")
}

func TestValidateSkipsTextScanForTrustedBinaryTypes(t *testing.T) {
	// The same payload inside a PDF wrapper is not content-scanned; the
	// asymmetry is deliberate.
	var buf bytes.Buffer
	buf.Write(fakePDF(512))
	payload := append(buf.Bytes(), []byte("<script>alert(1)</script>")...)

	result := Validate(payload, "report.pdf", "application/pdf", DocTypeProofOfPayment)
	require.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestValidateWarnsOnMissingStructuralMarkers(t *testing.T) {
	// JPEG without the end-of-image marker passes with a warning.
	result := Validate(fakeJPEG(512, false), "photo.jpg", "image/jpeg", DocTypePhoto)
	require.True(t, result.Valid, "errors: %v", result.Errors)
	require.NotEmpty(t, result.Warnings)
	require.Contains(t, result.Warnings[0], "end-of-image")

	// PDF without %%EOF likewise.
	truncated := []byte("%PDF-1.4\n" + strings.Repeat("x", 200))
	result = Validate(truncated, "doc.pdf", "application/pdf", DocTypeIDDocument)
	require.True(t, result.Valid, "errors: %v", result.Errors)
	require.NotEmpty(t, result.Warnings)
}

func TestValidateUnknownDocType(t *testing.T) {
	result := Validate(fakePDF(512), "doc.pdf", "application/pdf", "mystery")
	require.False(t, result.Valid)
	require.Contains(t, result.Errors[0], "unknown document type")
}

func TestSniffType(t *testing.T) {
	require.Equal(t, TypePDF, SniffType([]byte("%PDF-1.5")))
	require.Equal(t, TypeJPEG, SniffType([]byte{0xFF, 0xD8, 0xFF, 0xE1}))
	require.Equal(t, TypePNG, SniffType([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00}))
	require.Equal(t, TypeDOC, SniffType([]byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}))
	require.Equal(t, TypeZip, SniffType([]byte{0x50, 0x4B, 0x03, 0x04}))
	require.Equal(t, TypeUnknown, SniffType([]byte("hello")))
}

func TestSHA256IsStable(t *testing.T) {
	a := Validate(fakePDF(512), "a.pdf", "application/pdf", DocTypeIDDocument)
	b := Validate(fakePDF(512), "b.pdf", "application/pdf", DocTypeIDDocument)

	require.Equal(t, a.FileInfo.SHA256, b.FileInfo.SHA256, "identical bytes must hash identically")
}
