package market

import (
	"fmt"
	"time"
)

// Category classifies a program in the catalog.
type Category string

const (
	CategoryRats     Category = "rats"
	CategoryCracked  Category = "cracked"
	CategoryFree     Category = "free"
	CategoryPaid     Category = "paid"
	CategoryCrypters Category = "crypters"
	CategoryMalware  Category = "malware"
	CategoryBinders  Category = "binders"
)

// AllCategories returns every known category in display order.
func AllCategories() []Category {
	return []Category{
		CategoryRats,
		CategoryCracked,
		CategoryFree,
		CategoryPaid,
		CategoryCrypters,
		CategoryMalware,
		CategoryBinders,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryRats, CategoryCracked, CategoryFree, CategoryPaid,
		CategoryCrypters, CategoryMalware, CategoryBinders:
		return true
	}
	return false
}

// ParseCategory converts a raw string into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Program is a downloadable catalog entry.
type Program struct {
	ID                   string    `json:"id" db:"id"`
	Title                string    `json:"title" db:"title"`
	ShortDescription     string    `json:"short_description" db:"short_description"`
	LongDescription      string    `json:"long_description" db:"long_description"`
	Category             Category  `json:"category" db:"category"`
	Price                float64   `json:"price" db:"price"`
	IsFree               bool      `json:"is_free" db:"is_free"`
	ImageURL             string    `json:"image_url" db:"image_url"`
	Videos               []string  `json:"videos" db:"-"`
	AdditionalImages     []string  `json:"additional_images" db:"-"`
	FileURL              string    `json:"file_url" db:"file_url"`
	CreatedBy            string    `json:"created_by" db:"created_by"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
	VideosJSON           string    `json:"-" db:"videos"`
	AdditionalImagesJSON string    `json:"-" db:"additional_images"`
}

// DisplayPrice is the price shown to visitors. Free programs always
// display as 0, whatever is stored.
func (p *Program) DisplayPrice() float64 {
	if p.IsFree {
		return 0
	}
	return p.Price
}

// Announcement is a feed entry shown on the announcements tab.
// ExternalID carries the source GUID for imported announcements and is
// empty for admin-authored ones.
type Announcement struct {
	ID         string    `json:"id" db:"id"`
	Title      string    `json:"title" db:"title"`
	Content    string    `json:"content" db:"content"`
	CreatedBy  string    `json:"created_by" db:"created_by"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	ExternalID string    `json:"-" db:"external_id"`
}

// Admin is a content manager account.
type Admin struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	SuperAdmin   bool      `json:"super_admin" db:"super_admin"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// AdminApplication is a visitor's request to become an admin.
type AdminApplication struct {
	ID              string    `json:"id" db:"id"`
	DiscordUsername string    `json:"discord_username" db:"discord_username"`
	Email           string    `json:"email" db:"email"`
	Reason          string    `json:"reason" db:"reason"`
	IPAddress       string    `json:"-" db:"ip_address"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// LikeRecord is one like of the whole site, at most one per identity.
type LikeRecord struct {
	IPAddress string    `json:"-" db:"ip_address"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// VisitEvent records a program detail view. Append-only.
type VisitEvent struct {
	ID           int64     `json:"id" db:"id"`
	ProgramID    string    `json:"program_id" db:"program_id"`
	ProgramTitle string    `json:"program_title" db:"program_title"`
	IPAddress    string    `json:"-" db:"ip_address"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// DownloadEvent records a program download. Append-only.
type DownloadEvent struct {
	ID           int64     `json:"id" db:"id"`
	ProgramID    string    `json:"program_id" db:"program_id"`
	ProgramTitle string    `json:"program_title" db:"program_title"`
	IPAddress    string    `json:"-" db:"ip_address"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Session is a server-issued admin login token.
type Session struct {
	Token     string    `json:"token" db:"token"`
	Username  string    `json:"username" db:"username"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}

// SettingDiscordLink is the settings key for the community invite URL.
const SettingDiscordLink = "discord_link"
