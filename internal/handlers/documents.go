package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/internal/services"
	"github.com/eacouncil/membership/internal/storage"
	"github.com/eacouncil/membership/pkg/errors"
	"github.com/eacouncil/membership/pkg/response"
)

// maxUploadBytes caps the multipart body read at finalize. Individual
// document policies enforce tighter per-type limits.
const maxUploadBytes = 12 << 20

// DocumentHandler issues upload URLs and finalizes uploaded documents.
type DocumentHandler struct {
	documents *services.DocumentService
	presigner storage.Presigner
}

func NewDocumentHandler(documents *services.DocumentService, presigner storage.Presigner) *DocumentHandler {
	return &DocumentHandler{documents: documents, presigner: presigner}
}

type uploadURLRequest struct {
	FileName    string `json:"file_name" validate:"required,notblank,max=255"`
	ContentType string `json:"content_type" validate:"required,max=100"`
}

// POST /api/documents/upload-url
func (h *DocumentHandler) UploadURL(c *gin.Context) {
	var req uploadURLRequest
	if !bindAndValidate(c, &req) {
		return
	}

	upload, err := h.presigner.PresignUpload(c.Request.Context(), req.FileName, req.ContentType)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, upload)
}

// POST /api/documents/finalize
//
// Multipart form: file (the content), applicant_id, doc_type, and optional
// application_id and file_key. The bytes are validated server-side even when
// the content already sits in object storage.
func (h *DocumentHandler) Finalize(c *gin.Context) {
	applicantID := c.PostForm("applicant_id")
	docType := c.PostForm("doc_type")
	if applicantID == "" || docType == "" {
		response.Error(c, errors.NewBadRequest("applicant_id and doc_type are required"))
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errors.NewBadRequest("file is required"))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		response.Error(c, errors.NewBadRequest("file exceeds the maximum upload size"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		response.Error(c, errors.ErrInternalServer.WithInternal(err))
		return
	}
	if int64(len(data)) > maxUploadBytes {
		response.Error(c, errors.NewBadRequest("file exceeds the maximum upload size"))
		return
	}

	fileKey := c.PostForm("file_key")
	if fileKey == "" {
		fileKey = storage.ObjectKey(fileHeader.Filename)
	}

	var applicationID *string
	if v := c.PostForm("application_id"); v != "" {
		applicationID = &v
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	document, err := h.documents.Finalize(c.Request.Context(), services.FinalizeInput{
		ApplicantID:   applicantID,
		ApplicationID: applicationID,
		FileKey:       fileKey,
		FileName:      fileHeader.Filename,
		DocType:       docType,
		MimeType:      mimeType,
		Data:          data,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"document": document})
}

// GET /api/applicants/:id/documents (staff)
func (h *DocumentHandler) ListByApplicant(c *gin.Context) {
	documents, err := h.documents.ListByApplicant(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"documents": documents})
}
