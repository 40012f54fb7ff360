package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Justvicky153/ratplacecopy/pkg/market"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestProgramCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := market.Program{
		Title:            "Shadow RAT",
		ShortDescription: "remote administration",
		Category:         market.CategoryRats,
		Price:            49.99,
		Videos:           []string{"https://example.com/demo.mp4"},
		AdditionalImages: []string{"https://example.com/1.png", "https://example.com/2.png"},
		FileURL:          "https://example.com/shadow.zip",
		CreatedBy:        "alice",
	}
	require.NoError(t, s.CreateProgram(ctx, &p))
	require.NotEmpty(t, p.ID)

	got, err := s.GetProgram(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shadow RAT", got.Title)
	assert.Equal(t, market.CategoryRats, got.Category)
	assert.Equal(t, []string{"https://example.com/demo.mp4"}, got.Videos)
	assert.Len(t, got.AdditionalImages, 2)

	p.Title = "Shadow RAT v2"
	p.Price = 59.99
	require.NoError(t, s.UpdateProgram(ctx, &p))

	got, err = s.GetProgram(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shadow RAT v2", got.Title)
	assert.Equal(t, 59.99, got.Price)

	require.NoError(t, s.DeleteProgram(ctx, p.ID))
	_, err = s.GetProgram(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestProgramNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetProgram(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.UpdateProgram(ctx, &market.Program{ID: "missing", Title: "x"})
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.DeleteProgram(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListProgramsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, title := range []string{"oldest", "middle", "newest"} {
		p := market.Program{
			Title:     title,
			Category:  market.CategoryFree,
			IsFree:    true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.CreateProgram(ctx, &p))
	}

	programs, err := s.ListPrograms(ctx)
	require.NoError(t, err)
	require.Len(t, programs, 3)
	assert.Equal(t, "newest", programs[0].Title)
	assert.Equal(t, "oldest", programs[2].Title)
}

func TestImportAnnouncementDedup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := market.Announcement{
		Title:      "Release 1.0",
		Content:    "out now",
		CreatedBy:  "feed:blog",
		ExternalID: "blog:guid-1",
	}
	added, err := s.ImportAnnouncement(ctx, &first)
	require.NoError(t, err)
	assert.True(t, added)

	repeat := market.Announcement{
		Title:      "Release 1.0 (edited)",
		CreatedBy:  "feed:blog",
		ExternalID: "blog:guid-1",
	}
	added, err = s.ImportAnnouncement(ctx, &repeat)
	require.NoError(t, err)
	assert.False(t, added)

	anns, err := s.ListAnnouncements(ctx)
	require.NoError(t, err)
	require.Len(t, anns, 1)
	assert.Equal(t, "Release 1.0", anns[0].Title)

	_, err = s.ImportAnnouncement(ctx, &market.Announcement{Title: "no guid"})
	assert.Error(t, err)
}

func TestImportDoesNotCollideWithManualAnnouncements(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Admin-authored announcements all carry an empty external_id; the
	// partial unique index must not treat them as duplicates.
	require.NoError(t, s.CreateAnnouncement(ctx, &market.Announcement{Title: "first"}))
	require.NoError(t, s.CreateAnnouncement(ctx, &market.Announcement{Title: "second"}))

	anns, err := s.ListAnnouncements(ctx)
	require.NoError(t, err)
	assert.Len(t, anns, 2)
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	val, err := s.GetSetting(ctx, market.SettingDiscordLink)
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, s.UpsertSetting(ctx, market.SettingDiscordLink, "https://discord.gg/abc"))
	require.NoError(t, s.UpsertSetting(ctx, market.SettingDiscordLink, "https://discord.gg/xyz"))

	val, err = s.GetSetting(ctx, market.SettingDiscordLink)
	require.NoError(t, err)
	assert.Equal(t, "https://discord.gg/xyz", val)
}

func TestAddLikeIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	count, added, err := s.AddLike(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 1, count)

	count, added, err = s.AddLike(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, 1, count)

	count, added, err = s.AddLike(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 2, count)

	liked, err := s.HasLiked(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = s.HasLiked(ctx, "10.0.0.3")
	require.NoError(t, err)
	assert.False(t, liked)
}

func TestVisitAndDownloadEvents(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := market.Program{Title: "Stub Binder", Category: market.CategoryBinders}
	require.NoError(t, s.CreateProgram(ctx, &p))

	// Repeat visits are never deduplicated.
	require.NoError(t, s.AddVisit(ctx, p.ID, "10.0.0.1"))
	require.NoError(t, s.AddVisit(ctx, p.ID, "10.0.0.1"))
	require.NoError(t, s.AddDownload(ctx, p.ID, "10.0.0.1"))

	since := time.Now().UTC().Add(-time.Minute)

	visits, err := s.ListVisitsSince(ctx, since)
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, "Stub Binder", visits[0].ProgramTitle)

	downloads, err := s.ListDownloadsSince(ctx, since)
	require.NoError(t, err)
	require.Len(t, downloads, 1)

	visitCounts, err := s.CountVisitsByProgram(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, 2, visitCounts[p.ID])

	downloadCounts, err := s.CountDownloadsByProgram(ctx, since)
	require.NoError(t, err)
	assert.Equal(t, 1, downloadCounts[p.ID])
}

func TestEventsForDeletedProgramKeepEmptyTitle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := market.Program{Title: "Ghost", Category: market.CategoryMalware}
	require.NoError(t, s.CreateProgram(ctx, &p))
	require.NoError(t, s.AddVisit(ctx, p.ID, "10.0.0.1"))
	require.NoError(t, s.DeleteProgram(ctx, p.ID))

	visits, err := s.ListVisitsSince(ctx, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Empty(t, visits[0].ProgramTitle)
	assert.Equal(t, p.ID, visits[0].ProgramID)
}

func TestAdminAccounts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := market.Admin{Username: "alice", PasswordHash: "hash", SuperAdmin: true}
	require.NoError(t, s.CreateAdmin(ctx, &a))

	// Usernames are unique.
	dup := market.Admin{Username: "alice", PasswordHash: "other"}
	assert.Error(t, s.CreateAdmin(ctx, &dup))

	got, err := s.GetAdmin(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, got.SuperAdmin)

	admins, err := s.ListAdmins(ctx)
	require.NoError(t, err)
	assert.Len(t, admins, 1)

	require.NoError(t, s.DeleteAdmin(ctx, "alice"))
	assert.ErrorIs(t, s.DeleteAdmin(ctx, "alice"), ErrNotFound)
}

func TestApplicationsOnePerIP(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	app := market.AdminApplication{
		DiscordUsername: "rat_fan#1234",
		Email:           "fan@example.com",
		Reason:          "active in the community",
		IPAddress:       "10.0.0.1",
	}
	added, err := s.CreateApplication(ctx, &app)
	require.NoError(t, err)
	assert.True(t, added)

	again := market.AdminApplication{DiscordUsername: "other", IPAddress: "10.0.0.1"}
	added, err = s.CreateApplication(ctx, &again)
	require.NoError(t, err)
	assert.False(t, added)

	apps, err := s.ListApplications(ctx)
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "rat_fan#1234", apps[0].DiscordUsername)

	require.NoError(t, s.DeleteApplication(ctx, apps[0].ID))
	assert.ErrorIs(t, s.DeleteApplication(ctx, apps[0].ID), ErrNotFound)
}

func TestSessions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	live := market.Session{Token: "tok-live", Username: "alice", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	stale := market.Session{Token: "tok-stale", Username: "alice", CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	require.NoError(t, s.CreateSession(ctx, &live))
	require.NoError(t, s.CreateSession(ctx, &stale))

	got, err := s.GetSession(ctx, "tok-live")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	purged, err := s.DeleteExpiredSessions(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	_, err = s.GetSession(ctx, "tok-stale")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteSession(ctx, "tok-live"))
	_, err = s.GetSession(ctx, "tok-live")
	assert.ErrorIs(t, err, ErrNotFound)
}
