package intake

import "strings"

// Document categories accepted by the intake pipeline.
const (
	DocTypeIDDocument          = "id_document"
	DocTypeAcademicCertificate = "academic_certificate"
	DocTypeProofOfPayment      = "proof_of_payment"
	DocTypePhoto               = "photo"
	DocTypeCompanyRegistration = "company_registration"
	DocTypeOther               = "other"
)

// MinFileSize guards against empty or placeholder uploads.
const MinFileSize = 100

// Policy is the per-category acceptance rule set.
type Policy struct {
	MaxSize    int64
	Extensions []string
	MimeTypes  []string

	// TrustedBinary marks categories whose allow-listed formats are binary
	// document types; the malicious-content text scan is skipped for them.
	TrustedBinary bool
}

const mb = 1 << 20

var documentMimes = []string{
	"application/pdf",
	"image/jpeg",
	"image/png",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

var documentExts = []string{".pdf", ".jpg", ".jpeg", ".png", ".doc", ".docx"}

var policies = map[string]Policy{
	DocTypeIDDocument: {
		MaxSize:       5 * mb,
		Extensions:    []string{".pdf", ".jpg", ".jpeg", ".png"},
		MimeTypes:     []string{"application/pdf", "image/jpeg", "image/png"},
		TrustedBinary: true,
	},
	DocTypeAcademicCertificate: {
		MaxSize:       10 * mb,
		Extensions:    documentExts,
		MimeTypes:     documentMimes,
		TrustedBinary: true,
	},
	DocTypeProofOfPayment: {
		MaxSize:       5 * mb,
		Extensions:    documentExts,
		MimeTypes:     documentMimes,
		TrustedBinary: true,
	},
	DocTypePhoto: {
		MaxSize:       2 * mb,
		Extensions:    []string{".jpg", ".jpeg", ".png"},
		MimeTypes:     []string{"image/jpeg", "image/png"},
		TrustedBinary: true,
	},
	DocTypeCompanyRegistration: {
		MaxSize:       10 * mb,
		Extensions:    documentExts,
		MimeTypes:     documentMimes,
		TrustedBinary: true,
	},
	DocTypeOther: {
		MaxSize:    5 * mb,
		Extensions: append([]string{".txt", ".csv"}, documentExts...),
		MimeTypes:  append([]string{"text/plain", "text/csv"}, documentMimes...),
	},
}

// PolicyFor returns the acceptance policy for the document category.
func PolicyFor(docType string) (Policy, bool) {
	policy, ok := policies[strings.ToLower(strings.TrimSpace(docType))]
	return policy, ok
}

// KnownDocTypes lists the accepted categories, for request validation.
func KnownDocTypes() []string {
	return []string{
		DocTypeIDDocument,
		DocTypeAcademicCertificate,
		DocTypeProofOfPayment,
		DocTypePhoto,
		DocTypeCompanyRegistration,
		DocTypeOther,
	}
}

func (p Policy) allowsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, allowed := range p.Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

func (p Policy) allowsMime(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	// Browsers routinely append charset parameters.
	if idx := strings.Index(mime, ";"); idx >= 0 {
		mime = strings.TrimSpace(mime[:idx])
	}
	for _, allowed := range p.MimeTypes {
		if mime == allowed {
			return true
		}
	}
	return false
}
