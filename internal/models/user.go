package models

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is a registered account. Cash is the uninvested balance and is
// never allowed to go negative.
type User struct {
	gorm.Model
	Username string          `gorm:"uniqueIndex;not null" json:"username"`
	Hash     string          `gorm:"not null" json:"-"`
	Cash     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"cash"`
}
