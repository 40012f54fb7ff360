package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/Justvicky153/ratplacecopy/internal/auth"
	"github.com/Justvicky153/ratplacecopy/pkg/feed"
	"github.com/Justvicky153/ratplacecopy/pkg/notify"
)

// Scheduler runs the daemon's periodic jobs: announcement feed sync and
// expired-session purging.
type Scheduler struct {
	importer  *feed.Importer
	auth      *auth.Manager
	notifyMgr *notify.Manager
	syncInt   time.Duration
	purgeInt  time.Duration
}

// New creates a new scheduler.
func New(
	importer *feed.Importer,
	authMgr *auth.Manager,
	notifyMgr *notify.Manager,
	syncInt, purgeInt time.Duration,
) *Scheduler {
	if syncInt == 0 {
		syncInt = 30 * time.Minute
	}
	if purgeInt == 0 {
		purgeInt = time.Hour
	}
	return &Scheduler{
		importer:  importer,
		auth:      authMgr,
		notifyMgr: notifyMgr,
		syncInt:   syncInt,
		purgeInt:  purgeInt,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	syncTicker := time.NewTicker(s.syncInt)
	purgeTicker := time.NewTicker(s.purgeInt)
	defer syncTicker.Stop()
	defer purgeTicker.Stop()

	// Run immediately on start.
	s.syncFeeds(ctx)
	s.purgeSessions(ctx)

	fmt.Fprintf(os.Stderr, "scheduler: running (feed sync every %s, session purge every %s)\n",
		s.syncInt, s.purgeInt)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-syncTicker.C:
			s.syncFeeds(ctx)
		case <-purgeTicker.C:
			s.purgeSessions(ctx)
		}
	}
}

func (s *Scheduler) syncFeeds(ctx context.Context) {
	if s.importer == nil || !s.importer.HasSources() {
		return
	}

	fmt.Fprintln(os.Stderr, "scheduler: syncing announcement feeds...")
	created, err := s.importer.Sync(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "  feed sync error: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "  imported %d announcements\n", len(created))

	if s.notifyMgr == nil || !s.notifyMgr.HasNotifiers() {
		return
	}
	for i := range created {
		if err := s.notifyMgr.Broadcast(ctx, &created[i]); err != nil {
			fmt.Fprintf(os.Stderr, "  notify error for %q: %v\n", created[i].Title, err)
		}
	}
}

func (s *Scheduler) purgeSessions(ctx context.Context) {
	n, err := s.auth.PurgeExpired(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "scheduler: session purge error: %v\n", err)
		return
	}
	if n > 0 {
		fmt.Fprintf(os.Stderr, "scheduler: purged %d expired sessions\n", n)
	}
}
