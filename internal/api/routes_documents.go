package api

import (
	"github.com/gin-gonic/gin"

	"github.com/eacouncil/membership/internal/handlers"
)

func registerDocumentRoutes(public *gin.RouterGroup, documents *handlers.DocumentHandler) {
	group := public.Group("/documents")
	{
		group.POST("/upload-url", documents.UploadURL)
		group.POST("/finalize", documents.Finalize)
	}
}
