package models

import (
	"time"
	"unicode/utf8"
)

// PreviewLength is the number of characters kept by Post.Preview.
const PreviewLength = 15

// Post is a text entry written by an author, optionally filed under a group
// and carrying an image stored in the media blob store.
type Post struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Text         string    `gorm:"type:text;not null" json:"text"`
	CreatedAt    time.Time `gorm:"not null;index:idx_posts_created_at,sort:desc" json:"pub_date"`
	AuthorID     uint      `gorm:"not null;index" json:"author_id"`
	Author       User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID      *uint     `gorm:"index" json:"group_id,omitempty"`
	Group        *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	Image        string    `gorm:"size:255" json:"image,omitempty"`
	ImagePreview string    `gorm:"size:255" json:"image_preview,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM.
func (Post) TableName() string {
	return "posts"
}

// Preview returns the first PreviewLength characters of the post text.
func (p Post) Preview() string {
	return truncateRunes(p.Text, PreviewLength)
}

func (p Post) String() string {
	return p.Preview()
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
