package escrow

import (
	"context"
	"errors"
	"sync"
	"time"

	"gorm.io/gorm"

	"sellit/internal/models"
)

// MaxCodeAttempts — число неверных кодов, после которого сделка замораживается.
const MaxCodeAttempts = 3

// Engine — единственный писатель эскроу-полей объявления.
// Переходы: available -> (Commit) -> committed -> (Verify ok) -> sold;
// committed -> (Verify fail x3) -> committed + locked (терминально).
// Операции по одному объявлению сериализуются мьютексом по ID, сам переход
// дополнительно защищён условным UPDATE по статусу.
type Engine struct {
	db    *gorm.DB
	locks sync.Map // listing id -> *sync.Mutex
}

func NewEngine(db *gorm.DB) *Engine {
	return &Engine{db: db}
}

func (e *Engine) lock(listingID string) *sync.Mutex {
	mu, _ := e.locks.LoadOrStore(listingID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Commit блокирует объявление за покупателем и возвращает открытый код выдачи.
// Код возвращается ровно один раз и нигде не сохраняется.
func (e *Engine) Commit(ctx context.Context, listingID, buyerID string) (string, error) {
	mu := e.lock(listingID)
	mu.Lock()
	defer mu.Unlock()

	var l models.Listing
	if err := e.db.WithContext(ctx).Where("id = ?", listingID).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrListingNotFound
		}
		return "", err
	}
	if l.SellerID == buyerID {
		return "", ErrOwnListing
	}
	if l.Status != models.ListingStatusAvailable {
		return "", ErrListingUnavailable
	}

	code := GenerateCode()
	hash, err := HashCode(code)
	if err != nil {
		return "", err
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Listing{}).
			Where("id = ? AND status = ?", listingID, models.ListingStatusAvailable).
			Updates(map[string]any{
				"status":               models.ListingStatusCommitted,
				"escrow_buyer_id":      buyerID,
				"release_code_hash":    hash,
				"failed_code_attempts": 0,
				"is_code_locked":       false,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrListingUnavailable
		}
		// Момент «средства заблокированы»: здесь в полной реализации был бы
		// захват платежа у покупателя.
		hold := models.Transaction{
			ListingID: l.ID,
			BuyerID:   buyerID,
			SellerID:  l.SellerID,
			Amount:    l.Price,
			Type:      models.TransactionTypeHold,
		}
		return tx.Create(&hold).Error
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// Verify проверяет код выдачи от продавца. При совпадении объявление
// становится sold, хеш стирается, покупатель остаётся в истории.
// При несовпадении счётчик попыток растёт, на третьей — заморозка.
func (e *Engine) Verify(ctx context.Context, listingID, sellerID, code string) error {
	mu := e.lock(listingID)
	mu.Lock()
	defer mu.Unlock()

	var l models.Listing
	if err := e.db.WithContext(ctx).Where("id = ?", listingID).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrListingNotFound
		}
		return err
	}
	if l.Status != models.ListingStatusCommitted {
		return ErrListingUnavailable
	}
	if l.SellerID != sellerID {
		return ErrNotSeller
	}
	// Заморозка проверяется до сравнения хеша: правильный код на замороженной
	// сделке не принимается и счётчик не трогается.
	if l.IsCodeLocked {
		return ErrCodeLocked
	}
	if l.ReleaseCodeHash == nil {
		return ErrListingUnavailable
	}

	if VerifyCode(code, *l.ReleaseCodeHash) {
		buyerID := ""
		if l.EscrowBuyerID != nil {
			buyerID = *l.EscrowBuyerID
		}
		now := time.Now()
		return e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Model(&models.Listing{}).
				Where("id = ? AND status = ?", listingID, models.ListingStatusCommitted).
				Updates(map[string]any{
					"status":            models.ListingStatusSold,
					"release_code_hash": nil,
					"sold_at":           now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrListingUnavailable
			}
			release := models.Transaction{
				ListingID: l.ID,
				BuyerID:   buyerID,
				SellerID:  l.SellerID,
				Amount:    l.Price,
				Type:      models.TransactionTypeRelease,
			}
			return tx.Create(&release).Error
		})
	}

	attempts := l.FailedCodeAttempts + 1
	upd := map[string]any{"failed_code_attempts": attempts}
	if attempts >= MaxCodeAttempts {
		upd["is_code_locked"] = true
	}
	res := e.db.WithContext(ctx).Model(&models.Listing{}).
		Where("id = ? AND status = ?", listingID, models.ListingStatusCommitted).
		Updates(upd)
	if res.Error != nil {
		return res.Error
	}
	left := MaxCodeAttempts - attempts
	if left < 0 {
		left = 0
	}
	return &CodeMismatchError{AttemptsLeft: left}
}
