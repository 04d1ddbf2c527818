package app

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// StoredName derives the server-side file name: "<base-with-dashes>-<unixmillis><ext>".
func StoredName(original string, now time.Time) string {
	original = strings.ReplaceAll(original, `\`, "/")
	base := filepath.Base(original)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	stem = whitespaceRun.ReplaceAllString(stem, "-")
	if stem == "" || stem == "." || stem == "/" {
		stem = "upload"
	}
	return fmt.Sprintf("%s-%d%s", stem, now.UnixMilli(), ext)
}

func thumbnailName(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name)) + "-thumb.jpg"
}

// ExportFilename names a video backup after the export time.
func ExportFilename(now time.Time) string {
	ts := now.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return "videos-backup-" + ts + ".json"
}
