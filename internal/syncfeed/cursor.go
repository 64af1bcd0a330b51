// Cursor encoding for the change feed.
//
// A cursor is the client-held resume position. It is opaque to clients: the
// only contract is that Decode(Encode(c)) == c and that any cursor handed
// out by a pull is valid input to the next pull. Internally it carries the
// full ordering key of the last delivered row, so a resumed pull starts
// strictly after that row even when siblings share its timestamp.
package syncfeed

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	apperrors "github.com/tetondan64/recordergear/backend/internal/errors"
)

// Cursor marks how much of the change feed a replica has consumed.
type Cursor struct {
	Timestamp int64  `json:"ts"`
	Priority  int64  `json:"pri"`
	Key       string `json:"key"`
}

// InitialCursor returns the position before all changes.
func InitialCursor() Cursor {
	return Cursor{}
}

// OrderKey returns the cursor position as an ordering key; feed rows must
// compare strictly greater than it to be delivered.
func (c Cursor) OrderKey() OrderKey {
	return OrderKey{Timestamp: c.Timestamp, Priority: c.Priority, Key: c.Key}
}

// Encode serializes a cursor into its opaque wire form. Equal cursors
// always encode identically.
func Encode(c Cursor) string {
	// Marshal of a flat struct cannot fail.
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// Decode parses an opaque cursor token. It fails with INVALID_CURSOR when
// the token is not valid base64, not the expected structure, or when a
// numeric field is not an integer.
func Decode(token string) (Cursor, error) {
	data, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, apperrors.Wrap(apperrors.ErrInvalidCursor, "cursor is not valid base64", err)
	}

	var c Cursor
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Cursor{}, apperrors.Wrap(apperrors.ErrInvalidCursor, "cursor payload is malformed", err)
	}
	// Reject trailing garbage after the JSON document.
	if dec.More() {
		return Cursor{}, apperrors.New(apperrors.ErrInvalidCursor, "cursor payload has trailing data")
	}
	if c.Timestamp < 0 {
		return Cursor{}, apperrors.New(apperrors.ErrInvalidCursor,
			fmt.Sprintf("cursor timestamp must not be negative, got %d", c.Timestamp))
	}
	return c, nil
}

// ParseSince interprets the client-supplied since parameter. Absent,
// "null" and "undefined" are deliberate sentinels meaning "from the
// beginning"; anything else must be a decodable cursor.
func ParseSince(since string) (Cursor, error) {
	switch since {
	case "", "null", "undefined":
		return InitialCursor(), nil
	}
	return Decode(since)
}
