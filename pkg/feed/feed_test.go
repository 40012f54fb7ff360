package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Justvicky153/ratplacecopy/internal/store"
)

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>RatPlace Blog</title>
  <item>
    <title>Release 1.0</title>
    <description>The marketplace is live.</description>
    <guid>post-1</guid>
    <pubDate>Mon, 02 Jan 2006 15:04:05 GMT</pubDate>
  </item>
  <item>
    <title>Maintenance window</title>
    <description>Short downtime tonight.</description>
    <guid>post-2</guid>
  </item>
  <item>
    <title>No identity at all</title>
    <description>Missing both guid and link; skipped.</description>
  </item>
</channel>
</rss>`

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "feed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSyncImportsAndDeduplicates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssBody))
	}))
	defer srv.Close()

	s := newTestStore(t)
	im := NewImporter(s, []Source{{Name: "blog", URL: srv.URL}}, "feed")
	require.True(t, im.HasSources())

	ctx := context.Background()
	created, err := im.Sync(ctx)
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "Release 1.0", created[0].Title)
	assert.Equal(t, "feed:blog", created[0].CreatedBy)
	assert.Equal(t, "blog:post-1", created[0].ExternalID)

	// A second sync of the same feed creates nothing new.
	created, err = im.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, created)

	anns, err := s.ListAnnouncements(ctx)
	require.NoError(t, err)
	assert.Len(t, anns, 2)
}

func TestSyncSkipsBrokenFeeds(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(rssBody))
	}))
	defer good.Close()

	s := newTestStore(t)
	im := NewImporter(s, []Source{
		{Name: "broken", URL: bad.URL},
		{Name: "blog", URL: good.URL},
	}, "")

	created, err := im.Sync(context.Background())
	require.NoError(t, err)
	assert.Len(t, created, 2)
}

func TestImporterWithoutSources(t *testing.T) {
	im := NewImporter(newTestStore(t), nil, "")
	assert.False(t, im.HasSources())

	created, err := im.Sync(context.Background())
	require.NoError(t, err)
	assert.Empty(t, created)
}
