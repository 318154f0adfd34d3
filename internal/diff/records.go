package diff

import (
	"github.com/google/uuid"

	"github.com/lexdraft/lexdraft/backend/go-services/internal/version"
)

// Records materializes spans as change-log rows owned by versionID.
// Unchanged spans are kept only when withUnchanged is set; they carry the
// text in both OldValue and NewValue so the rows rebuild either side.
func Records(versionID string, spans []Span, withUnchanged bool) []version.DocumentChange {
	out := make([]version.DocumentChange, 0, len(spans))
	for _, s := range spans {
		value := s.Value
		c := version.DocumentChange{
			ID:        uuid.NewString(),
			VersionID: versionID,
			FieldPath: version.FieldContent,
			Ordinal:   len(out),
		}
		switch {
		case s.Added:
			c.ChangeType = version.ChangeAdd
			c.NewValue = &value
		case s.Removed:
			c.ChangeType = version.ChangeDelete
			c.OldValue = &value
		default:
			if !withUnchanged {
				continue
			}
			c.ChangeType = version.ChangeUnchanged
			c.OldValue = &value
			c.NewValue = &value
		}
		out = append(out, c)
	}
	return out
}

// FromRecords turns stored rows back into spans. Legacy "modify" rows carry
// no text and are skipped.
func FromRecords(changes []version.DocumentChange) []Span {
	out := make([]Span, 0, len(changes))
	for _, c := range changes {
		switch c.ChangeType {
		case version.ChangeAdd:
			if c.NewValue != nil {
				out = append(out, Span{Value: *c.NewValue, Added: true})
			}
		case version.ChangeDelete:
			if c.OldValue != nil {
				out = append(out, Span{Value: *c.OldValue, Removed: true})
			}
		case version.ChangeUnchanged:
			if c.NewValue != nil {
				out = append(out, Span{Value: *c.NewValue})
			}
		}
	}
	return out
}
