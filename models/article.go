package models

import "time"

// Article is one scraped headline.
type Article struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Title string `json:"title" gorm:"type:text;not null"`
	Link  string `json:"link" gorm:"type:text;not null"`

	// Only the latest note is referenced; older notes stay in the notes table.
	NoteID *uint `json:"note_id,omitempty" gorm:"index"`
	Note   *Note `json:"note,omitempty" gorm:"foreignKey:NoteID"`
}

// TableName returns the explicit table name.
func (Article) TableName() string {
	return "articles"
}
