package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/Justvicky153/ratplacecopy/pkg/market"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence interface.
type Store interface {
	ListPrograms(ctx context.Context) ([]market.Program, error)
	GetProgram(ctx context.Context, id string) (*market.Program, error)
	CreateProgram(ctx context.Context, p *market.Program) error
	UpdateProgram(ctx context.Context, p *market.Program) error
	DeleteProgram(ctx context.Context, id string) error

	ListAnnouncements(ctx context.Context) ([]market.Announcement, error)
	CreateAnnouncement(ctx context.Context, a *market.Announcement) error
	ImportAnnouncement(ctx context.Context, a *market.Announcement) (bool, error)
	UpdateAnnouncement(ctx context.Context, a *market.Announcement) error
	DeleteAnnouncement(ctx context.Context, id string) error

	GetSetting(ctx context.Context, key string) (string, error)
	UpsertSetting(ctx context.Context, key, value string) error

	AddLike(ctx context.Context, ip string) (count int, added bool, err error)
	LikeCount(ctx context.Context) (int, error)
	HasLiked(ctx context.Context, ip string) (bool, error)

	AddVisit(ctx context.Context, programID, ip string) error
	AddDownload(ctx context.Context, programID, ip string) error
	ListVisitsSince(ctx context.Context, since time.Time) ([]market.VisitEvent, error)
	ListDownloadsSince(ctx context.Context, since time.Time) ([]market.DownloadEvent, error)
	CountVisitsByProgram(ctx context.Context, since time.Time) (map[string]int, error)
	CountDownloadsByProgram(ctx context.Context, since time.Time) (map[string]int, error)

	GetAdmin(ctx context.Context, username string) (*market.Admin, error)
	ListAdmins(ctx context.Context) ([]market.Admin, error)
	CreateAdmin(ctx context.Context, a *market.Admin) error
	DeleteAdmin(ctx context.Context, username string) error

	CreateApplication(ctx context.Context, app *market.AdminApplication) (bool, error)
	ListApplications(ctx context.Context) ([]market.AdminApplication, error)
	DeleteApplication(ctx context.Context, id string) error

	CreateSession(ctx context.Context, s *market.Session) error
	GetSession(ctx context.Context, token string) (*market.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)

	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// New opens a SQLite database and runs migrations.
func New(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ListPrograms(ctx context.Context) ([]market.Program, error) {
	var programs []market.Program
	err := s.db.SelectContext(ctx, &programs,
		"SELECT * FROM programs ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}
	for i := range programs {
		unmarshalProgramJSON(&programs[i])
	}
	return programs, nil
}

func (s *SQLiteStore) GetProgram(ctx context.Context, id string) (*market.Program, error) {
	var p market.Program
	err := s.db.GetContext(ctx, &p, "SELECT * FROM programs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get program %s: %w", id, err)
	}
	unmarshalProgramJSON(&p)
	return &p, nil
}

func (s *SQLiteStore) CreateProgram(ctx context.Context, p *market.Program) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	videosJSON, _ := json.Marshal(p.Videos)
	imagesJSON, _ := json.Marshal(p.AdditionalImages)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO programs (id, title, short_description, long_description, category, price, is_free, image_url, videos, additional_images, file_url, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, p.ID, p.Title, p.ShortDescription, p.LongDescription, p.Category,
		p.Price, p.IsFree, p.ImageURL, string(videosJSON), string(imagesJSON),
		p.FileURL, p.CreatedBy, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("create program %s: %w", p.ID, err)
	}
	return nil
}

func (s *SQLiteStore) UpdateProgram(ctx context.Context, p *market.Program) error {
	videosJSON, _ := json.Marshal(p.Videos)
	imagesJSON, _ := json.Marshal(p.AdditionalImages)

	res, err := s.db.ExecContext(ctx, `
		UPDATE programs SET title = ?, short_description = ?, long_description = ?, category = ?, price = ?, is_free = ?, image_url = ?, videos = ?, additional_images = ?, file_url = ?
		WHERE id = ?
	`, p.Title, p.ShortDescription, p.LongDescription, p.Category, p.Price,
		p.IsFree, p.ImageURL, string(videosJSON), string(imagesJSON), p.FileURL, p.ID)
	if err != nil {
		return fmt.Errorf("update program %s: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteProgram(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM programs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete program %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) ListAnnouncements(ctx context.Context) ([]market.Announcement, error) {
	var anns []market.Announcement
	err := s.db.SelectContext(ctx, &anns,
		"SELECT * FROM announcements ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	return anns, nil
}

func (s *SQLiteStore) CreateAnnouncement(ctx context.Context, a *market.Announcement) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO announcements (id, title, content, created_by, created_at, external_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.Title, a.Content, a.CreatedBy, a.CreatedAt, a.ExternalID)
	if err != nil {
		return fmt.Errorf("create announcement %s: %w", a.ID, err)
	}
	return nil
}

// ImportAnnouncement inserts a feed-sourced announcement, skipping GUIDs
// that were imported before. Returns whether a row was created.
func (s *SQLiteStore) ImportAnnouncement(ctx context.Context, a *market.Announcement) (bool, error) {
	if a.ExternalID == "" {
		return false, fmt.Errorf("import announcement: missing external id")
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO announcements (id, title, content, created_by, created_at, external_id)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) WHERE external_id != '' DO NOTHING
	`, a.ID, a.Title, a.Content, a.CreatedBy, a.CreatedAt, a.ExternalID)
	if err != nil {
		return false, fmt.Errorf("import announcement %s: %w", a.ExternalID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) UpdateAnnouncement(ctx context.Context, a *market.Announcement) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE announcements SET title = ?, content = ? WHERE id = ?",
		a.Title, a.Content, a.ID)
	if err != nil {
		return fmt.Errorf("update announcement %s: %w", a.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteAnnouncement(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM announcements WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete announcement %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSetting returns the stored value for key, or "" when unset.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return value, nil
}

func (s *SQLiteStore) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("upsert setting %s: %w", key, err)
	}
	return nil
}

// AddLike conditionally inserts a like for ip and returns the resulting
// total. Insert and count run in one transaction, so the returned count
// always matches the stored rows even under concurrent first-likes.
func (s *SQLiteStore) AddLike(ctx context.Context, ip string) (int, bool, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("add like: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO website_likes (ip_address, created_at) VALUES (?, ?)
		ON CONFLICT(ip_address) DO NOTHING
	`, ip, time.Now().UTC())
	if err != nil {
		return 0, false, fmt.Errorf("add like %s: %w", ip, err)
	}
	n, _ := res.RowsAffected()

	var count int
	if err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM website_likes"); err != nil {
		return 0, false, fmt.Errorf("count likes: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("add like commit: %w", err)
	}
	return count, n > 0, nil
}

func (s *SQLiteStore) LikeCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM website_likes"); err != nil {
		return 0, fmt.Errorf("count likes: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) HasLiked(ctx context.Context, ip string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM website_likes WHERE ip_address = ?", ip)
	if err != nil {
		return false, fmt.Errorf("has liked %s: %w", ip, err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) AddVisit(ctx context.Context, programID, ip string) error {
	return s.addEvent(ctx, "visits", programID, ip)
}

func (s *SQLiteStore) AddDownload(ctx context.Context, programID, ip string) error {
	return s.addEvent(ctx, "downloads", programID, ip)
}

func (s *SQLiteStore) addEvent(ctx context.Context, table, programID, ip string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO "+table+" (program_id, ip_address, created_at) VALUES (?, ?, ?)",
		programID, ip, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("add %s event %s: %w", table, programID, err)
	}
	return nil
}

func (s *SQLiteStore) ListVisitsSince(ctx context.Context, since time.Time) ([]market.VisitEvent, error) {
	var events []market.VisitEvent
	err := s.db.SelectContext(ctx, &events, `
		SELECT v.id, v.program_id, COALESCE(p.title, '') AS program_title, v.ip_address, v.created_at
		FROM visits v LEFT JOIN programs p ON p.id = v.program_id
		WHERE v.created_at >= ?
		ORDER BY v.created_at DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("list visits: %w", err)
	}
	return events, nil
}

func (s *SQLiteStore) ListDownloadsSince(ctx context.Context, since time.Time) ([]market.DownloadEvent, error) {
	var events []market.DownloadEvent
	err := s.db.SelectContext(ctx, &events, `
		SELECT d.id, d.program_id, COALESCE(p.title, '') AS program_title, d.ip_address, d.created_at
		FROM downloads d LEFT JOIN programs p ON p.id = d.program_id
		WHERE d.created_at >= ?
		ORDER BY d.created_at DESC
	`, since)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	return events, nil
}

func (s *SQLiteStore) CountVisitsByProgram(ctx context.Context, since time.Time) (map[string]int, error) {
	return s.countEventsByProgram(ctx, "visits", since)
}

func (s *SQLiteStore) CountDownloadsByProgram(ctx context.Context, since time.Time) (map[string]int, error) {
	return s.countEventsByProgram(ctx, "downloads", since)
}

func (s *SQLiteStore) countEventsByProgram(ctx context.Context, table string, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT program_id, COUNT(*) as cnt FROM "+table+" WHERE created_at >= ? GROUP BY program_id",
		since)
	if err != nil {
		return nil, fmt.Errorf("count %s by program: %w", table, err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var id string
		var cnt int
		if err := rows.Scan(&id, &cnt); err != nil {
			return nil, err
		}
		counts[id] = cnt
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) GetAdmin(ctx context.Context, username string) (*market.Admin, error) {
	var a market.Admin
	err := s.db.GetContext(ctx, &a, "SELECT * FROM admins WHERE username = ?", username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin %s: %w", username, err)
	}
	return &a, nil
}

func (s *SQLiteStore) ListAdmins(ctx context.Context) ([]market.Admin, error) {
	var admins []market.Admin
	err := s.db.SelectContext(ctx, &admins,
		"SELECT * FROM admins ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	return admins, nil
}

func (s *SQLiteStore) CreateAdmin(ctx context.Context, a *market.Admin) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO admins (id, username, password_hash, super_admin, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.ID, a.Username, a.PasswordHash, a.SuperAdmin, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("create admin %s: %w", a.Username, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteAdmin(ctx context.Context, username string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM admins WHERE username = ?", username)
	if err != nil {
		return fmt.Errorf("delete admin %s: %w", username, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateApplication stores an admin application unless the identity has
// applied before. Returns whether a row was created.
func (s *SQLiteStore) CreateApplication(ctx context.Context, app *market.AdminApplication) (bool, error) {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	if app.CreatedAt.IsZero() {
		app.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO admin_applications (id, discord_username, email, reason, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(ip_address) DO NOTHING
	`, app.ID, app.DiscordUsername, app.Email, app.Reason, app.IPAddress, app.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("create application: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *SQLiteStore) ListApplications(ctx context.Context) ([]market.AdminApplication, error) {
	var apps []market.AdminApplication
	err := s.db.SelectContext(ctx, &apps,
		"SELECT * FROM admin_applications ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	return apps, nil
}

func (s *SQLiteStore) DeleteApplication(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM admin_applications WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete application %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess *market.Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (token, username, created_at, expires_at)
		VALUES (?, ?, ?, ?)
	`, sess.Token, sess.Username, sess.CreatedAt, sess.ExpiresAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, token string) (*market.Session, error) {
	var sess market.Session
	err := s.db.GetContext(ctx, &sess, "SELECT * FROM sessions WHERE token = ?", token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &sess, nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, token string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", token)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

func unmarshalProgramJSON(p *market.Program) {
	json.Unmarshal([]byte(p.VideosJSON), &p.Videos)
	json.Unmarshal([]byte(p.AdditionalImagesJSON), &p.AdditionalImages)
}
