package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Justvicky153/ratplacecopy/internal/auth"
	"github.com/Justvicky153/ratplacecopy/internal/config"
	"github.com/Justvicky153/ratplacecopy/internal/scheduler"
	"github.com/Justvicky153/ratplacecopy/internal/store"
	"github.com/Justvicky153/ratplacecopy/pkg/catalog"
	"github.com/Justvicky153/ratplacecopy/pkg/engagement"
	"github.com/Justvicky153/ratplacecopy/pkg/feed"
	"github.com/Justvicky153/ratplacecopy/pkg/market"
	"github.com/Justvicky153/ratplacecopy/pkg/notify"
	"github.com/Justvicky153/ratplacecopy/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func buildImporter(cfg *config.Config, db store.Store) *feed.Importer {
	if !cfg.Feeds.Enabled {
		return feed.NewImporter(db, nil, cfg.Feeds.Author)
	}
	sources := make([]feed.Source, len(cfg.Feeds.Sources))
	for i, f := range cfg.Feeds.Sources {
		sources[i] = feed.Source{Name: f.Name, URL: f.URL}
	}
	return feed.NewImporter(db, sources, cfg.Feeds.Author)
}

func buildNotifyManager(cfg *config.Config) *notify.Manager {
	var notifiers []notify.Notifier

	if cfg.Notify.Discord.Enabled && cfg.Notify.Discord.WebhookURL != "" {
		notifiers = append(notifiers, notify.NewDiscord(cfg.Notify.Discord.WebhookURL))
	}
	if cfg.Notify.Webhook.Enabled && cfg.Notify.Webhook.URL != "" {
		notifiers = append(notifiers, notify.NewWebhook(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Secret))
	}

	return notify.NewManager(notifiers)
}

func buildServer(cfg *config.Config, db store.Store, port int) *server.Server {
	if port == 0 {
		port = cfg.Server.Port
	}
	engine := catalog.NewEngine(db)
	tracker := engagement.NewTracker(db, nil)
	authMgr := auth.NewManager(db, cfg.Auth.ParseSessionTTL())
	notifyMgr := buildNotifyManager(cfg)
	return server.New(db, engine, tracker, authMgr, notifyMgr, cfg.RateLimit, port)
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	srv := buildServer(cfg, db, port)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	authMgr := auth.NewManager(db, cfg.Auth.ParseSessionTTL())
	sched := scheduler.New(
		buildImporter(cfg, db),
		authMgr,
		buildNotifyManager(cfg),
		cfg.Schedule.ParseFeedSyncInterval(),
		cfg.Schedule.ParseSessionPurgeInterval(),
	)

	// Start scheduler in background.
	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	srv := buildServer(cfg, db, port)
	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	return srv.ListenAndServe()
}

func runAdminCreate(username string, super bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	fmt.Fprint(os.Stderr, "password: ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return fmt.Errorf("password must not be empty")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	admin := market.Admin{
		Username:     username,
		PasswordHash: hash,
		SuperAdmin:   super,
	}
	if err := db.CreateAdmin(context.Background(), &admin); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	fmt.Fprintf(os.Stderr, "created admin %s (super: %v)\n", username, super)
	return nil
}

func runAdminList() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	admins, err := db.ListAdmins(context.Background())
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}

	if len(admins) == 0 {
		fmt.Println("no admins found (create one first: ratplace admin create <username>)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "USERNAME\tSUPER\tCREATED")
	for _, a := range admins {
		fmt.Fprintf(w, "%s\t%v\t%s\n",
			a.Username, a.SuperAdmin, a.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func runAdminDelete(username string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	if err := db.DeleteAdmin(context.Background(), username); err != nil {
		return fmt.Errorf("delete admin: %w", err)
	}

	fmt.Fprintf(os.Stderr, "deleted admin %s\n", username)
	return nil
}

func runImport() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	importer := buildImporter(cfg, db)
	if !importer.HasSources() {
		return fmt.Errorf("no feeds configured (enable feeds in config.yaml)")
	}

	fmt.Fprintln(os.Stderr, "syncing feeds...")
	created, err := importer.Sync(context.Background())
	if err != nil {
		return fmt.Errorf("sync feeds: %w", err)
	}

	fmt.Fprintf(os.Stderr, "imported %d new announcements\n", len(created))
	return nil
}
