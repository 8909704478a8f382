package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"sellit/internal/escrow"
	"sellit/internal/models"
	"sellit/internal/notifications"
)

type CommitResponse struct {
	Message string `json:"message"`
	// Открытый код выдачи возвращается один раз и не подлежит повторному запросу.
	ReleaseCode string `json:"releaseCode"`
}

type VerifyRequest struct {
	Code string `json:"code"`
}

type VerifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type VerifyErrorResponse struct {
	Error        string `json:"error"`
	AttemptsLeft int    `json:"attemptsLeft"`
}

func createEscrowNotifications(db *gorm.DB, l models.Listing, event string, userIDs ...string) {
	payload, err := json.Marshal(map[string]string{
		"listingId": l.ID,
		"title":     l.Title,
		"status":    string(l.Status),
	})
	if err != nil {
		return
	}
	for _, uid := range userIDs {
		if uid == "" {
			continue
		}
		n := models.Notification{UserID: uid, Type: event, Payload: payload}
		if err := db.Create(&n).Error; err == nil {
			notifications.Broadcast(uid, n)
		}
	}
}

// CommitEscrow godoc
// @Summary Закоммитить покупку (блокировка средств)
// @Description available -> committed. Генерирует одноразовый код выдачи; покупатель передаёт его продавцу лично при получении товара.
// @Tags escrow
// @Security BearerAuth
// @Produce json
// @Param listingId path string true "ID объявления"
// @Success 200 {object} CommitResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/escrow/commit/{listingId} [post]
func CommitEscrow(db *gorm.DB, eng *escrow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		buyerID := userIDVal.(string)
		listingID := c.Param("listingId")

		code, err := eng.Commit(c.Request.Context(), listingID, buyerID)
		switch {
		case err == nil:
		case errors.Is(err, escrow.ErrListingNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing not found"})
			return
		case errors.Is(err, escrow.ErrOwnListing):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot buy own listing"})
			return
		case errors.Is(err, escrow.ErrListingUnavailable):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "listing no longer available"})
			return
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "escrow failed"})
			return
		}

		var l models.Listing
		if err := db.Where("id = ?", listingID).First(&l).Error; err == nil {
			createEscrowNotifications(db, l, models.NotificationListingCommitted, l.SellerID)
		}
		c.JSON(http.StatusOK, CommitResponse{Message: "Funds locked", ReleaseCode: code})
	}
}

// VerifyEscrow godoc
// @Summary Подтвердить код выдачи (выплата продавцу)
// @Description committed -> sold при верном коде. После трёх неверных кодов сделка замораживается.
// @Tags escrow
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param listingId path string true "ID объявления"
// @Param input body VerifyRequest true "код выдачи"
// @Success 200 {object} VerifyResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} VerifyErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/escrow/verify/{listingId} [post]
func VerifyEscrow(db *gorm.DB, eng *escrow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		sellerID := userIDVal.(string)
		listingID := c.Param("listingId")

		var r VerifyRequest
		if err := c.BindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}

		err := eng.Verify(c.Request.Context(), listingID, sellerID, r.Code)
		if err == nil {
			var l models.Listing
			if e := db.Where("id = ?", listingID).First(&l).Error; e == nil {
				buyerID := ""
				if l.EscrowBuyerID != nil {
					buyerID = *l.EscrowBuyerID
				}
				createEscrowNotifications(db, l, models.NotificationListingSold, l.SellerID, buyerID)
			}
			c.JSON(http.StatusOK, VerifyResponse{Success: true, Message: "Payout released"})
			return
		}

		var mismatch *escrow.CodeMismatchError
		switch {
		case errors.Is(err, escrow.ErrListingNotFound):
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing not found"})
		case errors.Is(err, escrow.ErrCodeLocked):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "transaction is frozen for safety"})
		case errors.Is(err, escrow.ErrNotSeller):
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
		case errors.Is(err, escrow.ErrListingUnavailable):
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid status"})
		case errors.As(err, &mismatch):
			if mismatch.AttemptsLeft == 0 {
				// Сделка только что заморожена — уведомляем обе стороны.
				var l models.Listing
				if e := db.Where("id = ?", listingID).First(&l).Error; e == nil {
					buyerID := ""
					if l.EscrowBuyerID != nil {
						buyerID = *l.EscrowBuyerID
					}
					createEscrowNotifications(db, l, models.NotificationListingFrozen, l.SellerID, buyerID)
				}
			}
			c.JSON(http.StatusUnauthorized, VerifyErrorResponse{Error: "invalid code", AttemptsLeft: mismatch.AttemptsLeft})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "verification error"})
		}
	}
}
