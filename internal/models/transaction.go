package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"sellit/internal/utils"
)

type TransactionType string

const (
	// Средства заблокированы при коммите покупателя.
	TransactionTypeHold TransactionType = "HOLD"
	// Выплата продавцу после подтверждения кода выдачи.
	TransactionTypeRelease TransactionType = "RELEASE"
)

// Transaction — запись журнала сделок. Создаётся только движком эскроу,
// по одной на событие (HOLD при коммите, RELEASE при продаже).
type Transaction struct {
	ID           string          `gorm:"primaryKey;size:21" json:"id"`
	ListingID    string          `gorm:"size:21;not null;index" json:"listingID"`
	Listing      Listing         `gorm:"foreignKey:ListingID" json:"-"`
	ListingTitle string          `gorm:"->;column:listing_title;-:migration" json:"listingTitle"`
	BuyerID      string          `gorm:"size:21;not null;index" json:"buyerID"`
	Buyer        User            `gorm:"foreignKey:BuyerID" json:"-"`
	SellerID     string          `gorm:"size:21;not null;index" json:"sellerID"`
	Seller       User            `gorm:"foreignKey:SellerID" json:"-"`
	Amount       decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"amount"`
	Type         TransactionType `gorm:"type:varchar(10);not null" json:"type"`
	CreatedAt    time.Time       `gorm:"autoCreateTime" json:"createdAt"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) (err error) {
	if t.ID == "" {
		t.ID, err = utils.GenerateNanoID()
	}
	return
}
