package store

const schema = `
CREATE TABLE IF NOT EXISTS programs (
    id                TEXT PRIMARY KEY,
    title             TEXT NOT NULL,
    short_description TEXT NOT NULL DEFAULT '',
    long_description  TEXT NOT NULL DEFAULT '',
    category          TEXT NOT NULL,
    price             REAL NOT NULL DEFAULT 0,
    is_free           BOOLEAN NOT NULL DEFAULT 0,
    image_url         TEXT NOT NULL DEFAULT '',
    videos            TEXT NOT NULL DEFAULT '[]',
    additional_images TEXT NOT NULL DEFAULT '[]',
    file_url          TEXT NOT NULL DEFAULT '',
    created_by        TEXT NOT NULL DEFAULT '',
    created_at        DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_programs_category ON programs(category);
CREATE INDEX IF NOT EXISTS idx_programs_created_at ON programs(created_at);

CREATE TABLE IF NOT EXISTS announcements (
    id          TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    content     TEXT NOT NULL DEFAULT '',
    created_by  TEXT NOT NULL DEFAULT '',
    created_at  DATETIME NOT NULL,
    external_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_announcements_created_at ON announcements(created_at);
CREATE UNIQUE INDEX IF NOT EXISTS idx_announcements_external
    ON announcements(external_id) WHERE external_id != '';

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS website_likes (
    ip_address TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS visits (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    program_id TEXT NOT NULL,
    ip_address TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_visits_program ON visits(program_id);
CREATE INDEX IF NOT EXISTS idx_visits_created_at ON visits(created_at);

CREATE TABLE IF NOT EXISTS downloads (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    program_id TEXT NOT NULL,
    ip_address TEXT NOT NULL,
    created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_downloads_program ON downloads(program_id);
CREATE INDEX IF NOT EXISTS idx_downloads_created_at ON downloads(created_at);

CREATE TABLE IF NOT EXISTS admins (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    super_admin   BOOLEAN NOT NULL DEFAULT 0,
    created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS admin_applications (
    id               TEXT PRIMARY KEY,
    discord_username TEXT NOT NULL,
    email            TEXT NOT NULL DEFAULT '',
    reason           TEXT NOT NULL DEFAULT '',
    ip_address       TEXT NOT NULL UNIQUE,
    created_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
    token      TEXT PRIMARY KEY,
    username   TEXT NOT NULL,
    created_at DATETIME NOT NULL,
    expires_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);
`
