package intake

import "bytes"

// FileType is the sniffed on-disk format.
type FileType string

const (
	TypePDF     FileType = "pdf"
	TypeJPEG    FileType = "jpeg"
	TypePNG     FileType = "png"
	TypeDOC     FileType = "doc"
	TypeZip     FileType = "zip" // DOCX and friends are zip containers
	TypeUnknown FileType = "unknown"
)

var (
	pdfMagic  = []byte("%PDF")
	jpegMagic = []byte{0xFF, 0xD8, 0xFF}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
	docMagic  = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	zipMagic  = []byte{0x50, 0x4B, 0x03, 0x04}

	jpegEOI   = []byte{0xFF, 0xD9}
	pdfFooter = []byte("%%EOF")
)

// SniffType identifies the file format from its leading magic bytes.
func SniffType(data []byte) FileType {
	switch {
	case bytes.HasPrefix(data, pdfMagic):
		return TypePDF
	case bytes.HasPrefix(data, jpegMagic):
		return TypeJPEG
	case bytes.HasPrefix(data, pngMagic):
		return TypePNG
	case bytes.HasPrefix(data, docMagic):
		return TypeDOC
	case bytes.HasPrefix(data, zipMagic):
		return TypeZip
	default:
		return TypeUnknown
	}
}

// typeForMime maps a declared MIME type to the format its magic should match.
func typeForMime(mime string) (FileType, bool) {
	switch mime {
	case "application/pdf":
		return TypePDF, true
	case "image/jpeg":
		return TypeJPEG, true
	case "image/png":
		return TypePNG, true
	case "application/msword":
		return TypeDOC, true
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return TypeZip, true
	default:
		return TypeUnknown, false
	}
}

// hasPDFFooter reports whether a %%EOF marker appears near the end. Some
// writers pad trailing bytes, so the last kilobyte is searched.
func hasPDFFooter(data []byte) bool {
	tail := data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}
	return bytes.Contains(tail, pdfFooter)
}

// hasJPEGEndMarker reports whether the end-of-image marker closes the file.
func hasJPEGEndMarker(data []byte) bool {
	tail := data
	if len(tail) > 64 {
		tail = tail[len(tail)-64:]
	}
	return bytes.Contains(tail, jpegEOI)
}
