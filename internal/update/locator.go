package update

import (
	"strings"

	"github.com/systmms/opcredsync/internal/opcli"
)

// Locate returns the first listed item whose title contains the search
// key as a substring. Titles arrive from opcli already lowercased and the
// search key is lowercase by construction, so the match is
// case-insensitive. Scanning keeps op's own listing order, so when
// several items match, op's primary result wins.
func Locate(items []opcli.ListItem, key string) (opcli.ListItem, bool) {
	for _, item := range items {
		if strings.Contains(item.Title, key) {
			return item, true
		}
	}
	return opcli.ListItem{}, false
}
