package version

import (
	"time"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/fields"
)

// ChangeType labels a change-log row.
type ChangeType string

const (
	ChangeAdd       ChangeType = "add"
	ChangeDelete    ChangeType = "delete"
	ChangeUnchanged ChangeType = "unchanged"
	// ChangeModify is accepted when reading older rows; it is never written.
	ChangeModify ChangeType = "modify"
)

// FieldContent is the only field path the change log records today.
const FieldContent = "content"

// MetaRestoredFrom is set on versions produced by a restore.
const MetaRestoredFrom = "restored_from"

// DocumentVersion is an immutable snapshot of a document's full content.
type DocumentVersion struct {
	ID                string     `json:"id" bson:"_id" db:"id"`
	DocumentID        string     `json:"documentId" bson:"document_id" db:"document_id"`
	Content           string     `json:"content" bson:"content" db:"content"`
	VersionNumber     int        `json:"versionNumber" bson:"version_number" db:"version_number"`
	CreatedAt         time.Time  `json:"createdAt" bson:"created_at" db:"created_at"`
	CreatedBy         string     `json:"createdBy" bson:"created_by" db:"created_by"`
	ChangeDescription string     `json:"changeDescription" bson:"change_description" db:"change_description"`
	Metadata          fields.Map `json:"metadata,omitempty" bson:"metadata,omitempty" db:"metadata"`
}

// DocumentChange is one diff span persisted against the version it produced.
type DocumentChange struct {
	ID         string     `json:"id" bson:"_id" db:"id"`
	VersionID  string     `json:"versionId" bson:"version_id" db:"version_id"`
	Ordinal    int        `json:"ordinal" bson:"ordinal" db:"ordinal"`
	FieldPath  string     `json:"fieldPath" bson:"field_path" db:"field_path"`
	OldValue   *string    `json:"oldValue" bson:"old_value" db:"old_value"`
	NewValue   *string    `json:"newValue" bson:"new_value" db:"new_value"`
	ChangeType ChangeType `json:"changeType" bson:"change_type" db:"change_type"`
}

// VersionWithChanges is a version together with its recorded change log.
type VersionWithChanges struct {
	DocumentVersion
	Changes []DocumentChange `json:"changes"`
}
