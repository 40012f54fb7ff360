package feed

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Justvicky153/ratplacecopy/internal/store"
	"github.com/Justvicky153/ratplacecopy/pkg/market"
)

// Source is a named RSS/Atom feed that announcements are pulled from.
type Source struct {
	Name string
	URL  string
}

// Importer syncs announcements from external feeds into the store.
// Re-imports are no-ops: entries are keyed by their feed GUID.
type Importer struct {
	client  *http.Client
	parser  *gofeed.Parser
	store   store.Store
	sources []Source
	author  string
}

// NewImporter creates an announcement importer. Imported announcements
// are attributed to author; it defaults to "feed" when empty.
func NewImporter(s store.Store, sources []Source, author string) *Importer {
	if author == "" {
		author = "feed"
	}
	return &Importer{
		client:  &http.Client{Timeout: 30 * time.Second},
		parser:  gofeed.NewParser(),
		store:   s,
		sources: sources,
		author:  author,
	}
}

// HasSources returns true if at least one feed is configured.
func (im *Importer) HasSources() bool {
	return len(im.sources) > 0
}

// Sync fetches every configured feed and stores unseen entries as
// announcements. Returns the newly created announcements so callers can
// notify about them. Per-feed failures are logged and skipped.
func (im *Importer) Sync(ctx context.Context) ([]market.Announcement, error) {
	var created []market.Announcement
	for _, src := range im.sources {
		anns, err := im.syncFeed(ctx, src)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  feed %s error: %v\n", src.Name, err)
			continue
		}
		created = append(created, anns...)
	}
	return created, nil
}

func (im *Importer) syncFeed(ctx context.Context, src Source) ([]market.Announcement, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request %s: %w", src.Name, err)
	}
	req.Header.Set("User-Agent", "ratplace/1.0")

	resp, err := im.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", src.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed %s status %d", src.Name, resp.StatusCode)
	}

	parsed, err := im.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.Name, err)
	}

	var created []market.Announcement
	for _, entry := range parsed.Items {
		guid := entry.GUID
		if guid == "" {
			guid = entry.Link
		}
		if guid == "" {
			continue
		}

		publishedAt := time.Now().UTC()
		if entry.PublishedParsed != nil {
			publishedAt = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			publishedAt = entry.UpdatedParsed.UTC()
		}

		ann := market.Announcement{
			Title:      entry.Title,
			Content:    entry.Description,
			CreatedBy:  im.author + ":" + src.Name,
			CreatedAt:  publishedAt,
			ExternalID: fmt.Sprintf("%s:%s", src.Name, guid),
		}

		added, err := im.store.ImportAnnouncement(ctx, &ann)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  feed %s import error: %v\n", src.Name, err)
			continue
		}
		if added {
			created = append(created, ann)
		}
	}
	return created, nil
}
