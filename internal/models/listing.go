package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"sellit/internal/utils"
)

type ListingStatus string

const (
	ListingStatusAvailable ListingStatus = "available"
	ListingStatusCommitted ListingStatus = "committed"
	ListingStatusSold      ListingStatus = "sold"
)

const (
	ConditionBrandNew   = "Brand New"
	ConditionLikeNew    = "Like New"
	ConditionFairlyUsed = "Fairly used"
)

// Listing — товар кампус-маркетплейса. Эскроу-поля (EscrowBuyerID,
// ReleaseCodeHash, FailedCodeAttempts, IsCodeLocked) изменяются только
// движком эскроу, никогда напрямую из хендлеров.
type Listing struct {
	ID          string          `gorm:"primaryKey;size:21" json:"id"`
	Title       string          `gorm:"type:varchar(255);not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Price       decimal.Decimal `gorm:"type:decimal(32,8);not null" json:"price"`
	Category    string          `gorm:"type:varchar(100);not null;index" json:"category"`
	Condition   string          `gorm:"type:varchar(20);not null;default:'Fairly used'" json:"condition"`
	Location    string          `gorm:"type:varchar(255)" json:"location"`
	ImageObject string          `gorm:"type:varchar(255)" json:"-"`
	SellerID    string          `gorm:"size:21;not null;index" json:"sellerID"`
	Seller      User            `gorm:"foreignKey:SellerID" json:"-"`
	Status      ListingStatus   `gorm:"type:varchar(20);not null;default:'available';index" json:"status"`
	IsUrgent    bool            `gorm:"not null;default:false" json:"isUrgent"`
	IsBoosted   bool            `gorm:"not null;default:false" json:"isBoosted"`
	ViewCount   int             `gorm:"not null;default:0" json:"viewCount"`

	// Хеш кода выдачи присутствует только пока Status == committed.
	// Открытый код нигде не хранится и не сериализуется.
	EscrowBuyerID      *string `gorm:"size:21" json:"escrowBuyerID,omitempty"`
	EscrowBuyer        *User   `gorm:"foreignKey:EscrowBuyerID" json:"-"`
	ReleaseCodeHash    *string `gorm:"type:varchar(255)" json:"-"`
	FailedCodeAttempts int     `gorm:"not null;default:0" json:"-"`
	IsCodeLocked       bool    `gorm:"not null;default:false" json:"-"`

	SoldAt    *time.Time `json:"soldAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (l *Listing) BeforeCreate(tx *gorm.DB) (err error) {
	if l.ID == "" {
		l.ID, err = utils.GenerateNanoID()
	}
	return
}
