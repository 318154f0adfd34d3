package document

import (
	"errors"
	"time"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/fields"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

// Document is the current state of a document. Content and Version always
// mirror the head of its version history.
type Document struct {
	ID        string     `json:"id" bson:"_id"`
	Title     string     `json:"title" bson:"title"`
	Content   string     `json:"content,omitempty" bson:"content"`
	OwnerID   string     `json:"ownerId" bson:"owner_id"`
	FolderID  string     `json:"folderId,omitempty" bson:"folder_id,omitempty"`
	Version   int        `json:"version" bson:"version"`
	Status    Status     `json:"status" bson:"status"`
	Metadata  fields.Map `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt time.Time  `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time  `json:"updatedAt" bson:"updated_at"`
}

type Level string

const (
	LevelViewer Level = "viewer"
	LevelEditor Level = "editor"
)

func (l Level) Valid() bool { return l == LevelViewer || l == LevelEditor }

// Permission shares a document with a user who does not own it.
type Permission struct {
	DocumentID string    `json:"documentId" bson:"document_id"`
	UserID     string    `json:"userId" bson:"user_id"`
	Level      Level     `json:"permission" bson:"permission"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
}

// ListFilter narrows List. Empty fields match everything; AccessibleBy keeps
// documents owned by or shared with that user.
type ListFilter struct {
	FolderID     string
	AccessibleBy string
}

var (
	ErrNotFound  = errors.New("document not found")
	ErrForbidden = errors.New("document access denied")
	ErrInvalid   = errors.New("invalid document request")
)
