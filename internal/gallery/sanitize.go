package gallery

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	invalidPathChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f\x7f]`)
	repeatedSpace    = regexp.MustCompile(`\s+`)
)

// SanitizeDirName turns a gallery title into a single safe path segment.
// Whitespace runs collapse to one space, characters that are illegal on
// common filesystems become '_' and trailing dots or spaces are dropped.
func SanitizeDirName(title string) (string, error) {
	name := repeatedSpace.ReplaceAllString(title, " ")
	name = invalidPathChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)
	name = strings.TrimRight(name, ". ")

	if name == "" {
		return "", &ExtractionError{Field: "title", Reason: fmt.Sprintf("title %q is not usable as a directory name", title)}
	}
	return name, nil
}
