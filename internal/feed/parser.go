package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"rssfeed/internal/domain"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/rss"
)

type feedKind int

const (
	feedKindRSS feedKind = iota + 1
	feedKindAtom
)

func (k feedKind) String() string {
	switch k {
	case feedKindRSS:
		return "rss"
	case feedKindAtom:
		return "atom"
	default:
		return "unknown"
	}
}

// document holds exactly one parsed feed, selected by kind.
type document struct {
	kind feedKind
	rss  *rss.Feed
	atom *atom.Feed
	// hasSummary[i] reports whether atom entry i carries a summary element.
	// Nil when the entries could not be scanned.
	hasSummary []bool
}

// RawItem is a feed entry before normalization. Published is never zero.
type RawItem struct {
	Title       string
	Link        string
	Description string
	Published   time.Time
}

// Parse detects the feed format once and maps its entries. Items without a
// parseable date get fetchedAt.
func Parse(raw []byte, fetchedAt time.Time) ([]RawItem, error) {
	doc, err := decode(raw)
	if err != nil {
		return nil, err
	}

	switch doc.kind {
	case feedKindRSS:
		return rssItems(doc.rss, fetchedAt), nil
	case feedKindAtom:
		return atomItems(doc.atom, doc.hasSummary, fetchedAt), nil
	default:
		return nil, fmt.Errorf("%w: unsupported kind %s", domain.ErrMalformedFeed, doc.kind)
	}
}

func decode(raw []byte) (document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return document{}, fmt.Errorf("%w: empty body", domain.ErrMalformedFeed)
	}

	switch feedType := gofeed.DetectFeedType(bytes.NewReader(raw)); feedType {
	case gofeed.FeedTypeRSS:
		parsed, err := (&rss.Parser{}).Parse(bytes.NewReader(raw))
		if err != nil {
			return document{}, fmt.Errorf("%w: parse rss: %w", domain.ErrMalformedFeed, err)
		}

		return document{kind: feedKindRSS, rss: parsed}, nil
	case gofeed.FeedTypeAtom:
		parsed, err := (&atom.Parser{}).Parse(bytes.NewReader(raw))
		if err != nil {
			return document{}, fmt.Errorf("%w: parse atom: %w", domain.ErrMalformedFeed, err)
		}

		return document{
			kind:       feedKindAtom,
			atom:       parsed,
			hasSummary: scanAtomSummaries(raw, len(parsed.Entries)),
		}, nil
	default:
		return document{}, fmt.Errorf("%w: unrecognized structure (type = %d)", domain.ErrMalformedFeed, feedType)
	}
}

func rssItems(parsed *rss.Feed, fetchedAt time.Time) []RawItem {
	items := make([]RawItem, 0, len(parsed.Items))

	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		published := fetchedAt
		if item.PubDateParsed != nil && !item.PubDateParsed.IsZero() {
			published = *item.PubDateParsed
		}

		items = append(items, RawItem{
			Title:       item.Title,
			Link:        item.Link,
			Description: item.Description,
			Published:   published,
		})
	}

	return items
}

func atomItems(parsed *atom.Feed, hasSummary []bool, fetchedAt time.Time) []RawItem {
	items := make([]RawItem, 0, len(parsed.Entries))

	for i, entry := range parsed.Entries {
		if entry == nil {
			continue
		}

		published := fetchedAt
		if entry.UpdatedParsed != nil && !entry.UpdatedParsed.IsZero() {
			published = *entry.UpdatedParsed
		}

		summaryPresent := entry.Summary != ""
		if hasSummary != nil {
			summaryPresent = hasSummary[i]
		}

		description := entry.Summary
		if !summaryPresent && entry.Content != nil {
			description = entry.Content.Value
		}

		items = append(items, RawItem{
			Title:       entry.Title,
			Link:        atomLink(entry.Links),
			Description: description,
			Published:   published,
		})
	}

	return items
}

func atomLink(links []*atom.Link) string {
	var first string

	for _, link := range links {
		if link == nil || strings.TrimSpace(link.Href) == "" {
			continue
		}

		if link.Rel == "" || link.Rel == "alternate" {
			return link.Href
		}

		if first == "" {
			first = link.Href
		}
	}

	return first
}

type atomSummaryScan struct {
	Entries []struct {
		Summary *struct{} `xml:"summary"`
	} `xml:"entry"`
}

// scanAtomSummaries tells an empty summary element apart from a missing one,
// which the parsed entries cannot. It returns nil unless the scan sees exactly
// entryCount entries.
func scanAtomSummaries(raw []byte, entryCount int) []bool {
	var scan atomSummaryScan
	if err := xml.Unmarshal(raw, &scan); err != nil || len(scan.Entries) != entryCount {
		return nil
	}

	present := make([]bool, entryCount)
	for i, entry := range scan.Entries {
		present[i] = entry.Summary != nil
	}

	return present
}
