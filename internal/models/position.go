package models

import "gorm.io/gorm"

// Position is a user's current holding in one symbol. Shares is always
// positive while the row exists; selling a position down to zero deletes
// the row rather than leaving a zero-share record behind.
type Position struct {
	gorm.Model
	UserID uint   `gorm:"uniqueIndex:idx_user_symbol;not null" json:"-"`
	Symbol string `gorm:"uniqueIndex:idx_user_symbol;not null" json:"symbol"`
	Shares int64  `gorm:"not null" json:"shares"`
}

// TableName keeps the original schema's table name.
func (Position) TableName() string {
	return "owned"
}
