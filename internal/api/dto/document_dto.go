package dto

import (
	"time"

	"github.com/spec-kit/triage-service/internal/domain"
)

// CreateDocumentRequest payload.
type CreateDocumentRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Source  string `json:"source"`
}

// DocumentResponse response.
type DocumentResponse struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	CreatedAt time.Time `json:"created_at"`
}

// NewDocumentResponse converts a domain document.
func NewDocumentResponse(doc *domain.Document) DocumentResponse {
	return DocumentResponse{
		ID:        doc.ID,
		Title:     doc.Title,
		Content:   doc.Content,
		Source:    doc.Source,
		CreatedAt: doc.CreatedAt,
	}
}
