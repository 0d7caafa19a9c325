package gallery

import "strings"

// Normalize makes sure url carries a query-string delimiter so that a
// "&page=N" fragment can be appended to it. URLs that already contain a '?'
// are returned unchanged.
func Normalize(url string) string {
	if strings.Contains(url, "?") {
		return url
	}
	return url + "?"
}
