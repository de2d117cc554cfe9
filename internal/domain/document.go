package domain

import "time"

// Document is a knowledge-base entry indexed for semantic search.
type Document struct {
	ID        string
	Title     string
	Content   string
	Source    string
	CreatedAt time.Time
}
