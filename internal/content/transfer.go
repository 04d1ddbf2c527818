package content

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"mediahub/pkg/domain"
)

// ErrInvalidImport is returned when an import document is not an array of media records.
var ErrInvalidImport = errors.New("invalid JSON format. Expected an array of media items")

// ParseMediaImport decodes an exported document. Every record must carry an id and a title.
func ParseMediaImport(data []byte) ([]domain.MediaItem, error) {
	var raw []map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	items := make([]domain.MediaItem, 0, len(raw))
	for i, rec := range raw {
		if !hasString(rec, "id") || !hasString(rec, "title") {
			return nil, fmt.Errorf("%w: record %d needs id and title", ErrInvalidImport, i)
		}
		encoded, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidImport, i, err)
		}
		var item domain.MediaItem
		if err := json.Unmarshal(encoded, &item); err != nil {
			return nil, fmt.Errorf("%w: record %d: %v", ErrInvalidImport, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// MarshalExport renders items the way ExportVideos documents are written to disk.
func MarshalExport(items []domain.MediaItem) ([]byte, error) {
	if items == nil {
		items = []domain.MediaItem{}
	}
	return json.MarshalIndent(items, "", "  ")
}

func hasString(rec map[string]json.RawMessage, key string) bool {
	raw, ok := rec[key]
	if !ok {
		return false
	}
	var v string
	return json.Unmarshal(raw, &v) == nil && v != ""
}
