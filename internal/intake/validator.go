// Package intake validates uploaded document bytes against per-category
// policies before their metadata is persisted.
package intake

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// FileInfo summarises the inspected file. SHA256 is always computed and feeds
// the duplicate check at finalize.
type FileInfo struct {
	SHA256       string   `json:"sha256"`
	SizeBytes    int64    `json:"size_bytes"`
	Extension    string   `json:"extension"`
	DeclaredMime string   `json:"declared_mime"`
	DetectedType FileType `json:"detected_type"`
}

// Result is the outcome of a validation run. Warnings do not block intake;
// any error does.
type Result struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	FileInfo FileInfo `json:"file_info"`
}

func (r *Result) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.Valid = false
}

func (r *Result) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

var dangerousExtensions = map[string]bool{
	".exe": true, ".bat": true, ".cmd": true, ".com": true, ".msi": true,
	".scr": true, ".ps1": true, ".sh": true, ".php": true, ".jsp": true,
	".asp": true, ".aspx": true, ".js": true, ".vbs": true, ".jar": true,
}

// Patterns indicating script or SQL injection payloads in text content.
var maliciousPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script[\s>]`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on(load|error|click|mouseover)\s*=`),
	regexp.MustCompile(`(?i)(union|select)\s+.*\s+from\s`),
	regexp.MustCompile(`(?i)drop\s+table\s`),
	regexp.MustCompile(`(?i)insert\s+into\s`),
	regexp.MustCompile(`(?i)<\?php`),
	regexp.MustCompile(`(?i)eval\s*\(`),
}

// Validate runs the intake checks in order: size bounds, extension and MIME
// allow-list, magic-number sniffing, malicious-content heuristics, and
// structural sanity. It always returns the SHA-256 of the content.
//
// A mismatch between the sniffed and declared type is a warning, tolerating
// ambiguous content-type headers from browsers; a wrong leading magic number
// for the declared type is an error. The text scan is skipped for trusted
// binary document categories, so a PDF carrying embedded JavaScript is not
// content-scanned here.
func Validate(data []byte, filename, mimeType, docType string) Result {
	result := Result{Valid: true}

	digest := sha256.Sum256(data)
	ext := strings.ToLower(filepath.Ext(filename))
	detected := SniffType(data)
	result.FileInfo = FileInfo{
		SHA256:       hex.EncodeToString(digest[:]),
		SizeBytes:    int64(len(data)),
		Extension:    ext,
		DeclaredMime: mimeType,
		DetectedType: detected,
	}

	policy, ok := PolicyFor(docType)
	if !ok {
		result.addError("unknown document type %q", docType)
		return result
	}

	// 1. Size bounds. An empty or truncated buffer fails everything after,
	// so short-circuit here.
	if int64(len(data)) < MinFileSize {
		result.addError("file too small (%d bytes, minimum %d)", len(data), MinFileSize)
		return result
	}
	if int64(len(data)) > policy.MaxSize {
		result.addError("file exceeds maximum size of %d bytes for %s", policy.MaxSize, docType)
	}

	// 2. Declared extension and MIME type must both be allow-listed.
	if !policy.allowsExtension(ext) {
		result.addError("extension %q is not allowed for %s", ext, docType)
	}
	if !policy.allowsMime(mimeType) {
		result.addError("mime type %q is not allowed for %s", mimeType, docType)
	}

	// Dangerous names are rejected regardless of category.
	checkFilename(filename, &result)

	// 3. Magic-number sniffing against the declared type.
	if expected, known := typeForMime(normalizeMime(mimeType)); known {
		if detected != expected {
			result.addError("file content does not match declared type %s (detected %s)", mimeType, detected)
		}
	} else if detected == TypeUnknown && policy.TrustedBinary {
		result.addWarning("unrecognised file signature for declared type %q", mimeType)
	}

	// 4. Malicious-content heuristics, skipped for trusted binary formats.
	if !policy.TrustedBinary {
		scanTextContent(data, &result)
	}

	// 5. Structural sanity for the detected format.
	switch detected {
	case TypePDF:
		if !hasPDFFooter(data) {
			result.addWarning("pdf end-of-file marker missing")
		}
	case TypeJPEG:
		if !hasJPEGEndMarker(data) {
			result.addWarning("jpeg end-of-image marker missing")
		}
	}

	return result
}

func checkFilename(filename string, result *Result) {
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		result.addError("filename %q contains path traversal characters", filename)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	if dangerousExtensions[ext] {
		result.addError("filename extension %q is not permitted", ext)
	}

	// A double extension like report.pdf.exe hides the executable suffix.
	parts := strings.Split(strings.ToLower(filename), ".")
	for _, part := range parts[1:] {
		if dangerousExtensions["."+part] {
			result.addError("filename %q contains a dangerous extension", filename)
			break
		}
	}
}

func scanTextContent(data []byte, result *Result) {
	content := string(data)
	for _, pattern := range maliciousPatterns {
		if pattern.MatchString(content) {
			result.addError("content matches disallowed pattern %q", pattern.String())
			return
		}
	}
}

func normalizeMime(mime string) string {
	mime = strings.ToLower(strings.TrimSpace(mime))
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}
