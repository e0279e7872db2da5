// Package render turns feed items into the HTML fragment embedded in host content.
// Item fields are expected to be escaped already.
package render

import (
	"fmt"
	"strings"

	"rssfeed/internal/domain"
)

const (
	Placeholder     = "[rssfeed]"
	Heading         = "Latest subscribed articles"
	FallbackMessage = "Unable to load RSS/Atom content, please check the configuration."
	TimestampLayout = "2006-01-02 15:04:05"
)

func Fragment(items []domain.FeedItem) string {
	if len(items) == 0 {
		return `<div class="rss-feed"><p>` + FallbackMessage + `</p></div>`
	}

	var b strings.Builder

	b.WriteString(`<div class="rss-feed">`)
	b.WriteString("<h3>" + Heading + "</h3>")

	for _, item := range items {
		fmt.Fprintf(&b, `
<div class="rss-item">
    <h4><a href="%s" target="_blank">%s</a></h4>
    <p>%s</p>
    <p><small>Source: %s | Published: %s</small></p>
</div>`,
			item.Link,
			item.Title,
			item.Description,
			item.Source,
			item.PublishedAt.Format(TimestampLayout),
		)
	}

	b.WriteString(`</div>`)

	return b.String()
}

// Embed replaces every placeholder with the wrapped fragment. fragment is called
// at most once, and only when content contains the placeholder.
func Embed(content string, fragment func() string) string {
	if !strings.Contains(content, Placeholder) {
		return content
	}

	wrapped := `<div class="rss-feed-container">` + fragment() + `</div>`

	return strings.ReplaceAll(content, Placeholder, wrapped)
}
