package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Transaction is an append-only record of a single buy or sell. Shares is
// signed: positive for buys, negative for sells. Price is the quote used
// for the trade. Rows are never updated or deleted.
type Transaction struct {
	gorm.Model
	UserID         uint            `gorm:"index;not null" json:"-"`
	Symbol         string          `gorm:"not null" json:"symbol"`
	Shares         int64           `gorm:"not null" json:"shares"`
	Price          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"price"`
	TimeOfTransact time.Time       `gorm:"index;not null" json:"time_of_transact"`
}
