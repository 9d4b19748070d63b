package engagement

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"Omnipost/internal/core/platforms"
)

// Opaque cursor wire format: base64("k|before|after") for keyset,
// base64("o|page|pageSize") for offset. Callers round-trip the string
// without inspecting it; the kind prefix is what lets the aggregator
// reject a cursor against the wrong provider before any network call.

// EncodeCursor renders a cursor as an opaque string for API responses
func EncodeCursor(c *platforms.Cursor) string {
	if c == nil {
		return ""
	}
	var plain string
	switch c.Kind {
	case platforms.PaginationOffset:
		plain = fmt.Sprintf("o|%d|%d", c.Page, c.PageSize)
	default:
		plain = fmt.Sprintf("k|%s|%s", c.Before, c.After)
	}
	return base64.URLEncoding.EncodeToString([]byte(plain))
}

// DecodeCursor parses an opaque cursor string. An empty string is the
// first page and decodes to nil.
func DecodeCursor(encoded string) (*platforms.Cursor, error) {
	if encoded == "" {
		return nil, nil
	}

	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCursor, err)
	}

	parts := strings.SplitN(string(raw), "|", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: expected 3 fields, got %d", ErrMalformedCursor, len(parts))
	}

	switch parts[0] {
	case "k":
		c := platforms.KeysetCursor(parts[1], parts[2])
		return &c, nil
	case "o":
		page, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("%w: bad page number", ErrMalformedCursor)
		}
		size, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("%w: bad page size", ErrMalformedCursor)
		}
		c := platforms.OffsetCursor(page, size)
		return &c, nil
	default:
		return nil, fmt.Errorf("%w: unknown cursor kind %q", ErrMalformedCursor, parts[0])
	}
}
