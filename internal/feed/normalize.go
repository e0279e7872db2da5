package feed

import (
	"html"
	"net/url"
	"strings"
	"unicode/utf8"

	"rssfeed/internal/domain"
)

const (
	DescriptionMaxChars = 200
	ellipsis            = "..."
)

// Normalize trims title and link only; descriptions keep their whitespace.
func Normalize(item RawItem, sourceURL string) domain.FeedItem {
	return domain.FeedItem{
		Title:       html.EscapeString(strings.TrimSpace(item.Title)),
		Link:        html.EscapeString(strings.TrimSpace(item.Link)),
		Description: html.EscapeString(TruncateDescription(item.Description)),
		Source:      SourceHost(sourceURL),
		PublishedAt: item.Published.UTC(),
	}
}

// TruncateDescription counts runes, not bytes.
func TruncateDescription(description string) string {
	if utf8.RuneCountInString(description) <= DescriptionMaxChars {
		return description
	}

	runes := []rune(description)

	return string(runes[:DescriptionMaxChars]) + ellipsis
}

func SourceHost(sourceURL string) string {
	u, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil {
		return ""
	}

	return u.Hostname()
}
