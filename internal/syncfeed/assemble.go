// Response assembler: internal change rows to wire-level change items.
package syncfeed

import "time"

// isoMillis renders a millisecond timestamp as ISO-8601 in UTC with fixed
// millisecond precision.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

func formatUpdatedAt(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(isoMillis)
}

// Assemble projects a ChangeRow to its wire shape. Relational id fields are
// carried over only where the family sets them, and data only for
// entity-snapshot rows.
func Assemble(row ChangeRow) ChangeItem {
	return ChangeItem{
		Type:        string(row.Type),
		Op:          string(row.Op),
		ID:          row.ID,
		UserID:      row.UserID,
		UpdatedAt:   formatUpdatedAt(row.UpdatedAtMs),
		Data:        row.Payload,
		RecordingID: row.RecordingID,
		TagID:       row.TagID,
		FolderID:    row.FolderID,
		ParentID:    row.ParentID,
	}
}

// AssembleAll projects a batch, preserving order. The result is never nil
// so an empty page serializes as [] rather than null.
func AssembleAll(rows []ChangeRow) []ChangeItem {
	items := make([]ChangeItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, Assemble(row))
	}
	return items
}
