package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"sellit/internal/models"
)

// ListPurchases godoc
// @Summary История покупок пользователя
// @Description Записи журнала сделок, где пользователь — покупатель (HOLD и RELEASE).
// @Tags transactions
// @Security BearerAuth
// @Produce json
// @Param limit query int false "лимит"
// @Param offset query int false "смещение"
// @Success 200 {array} models.Transaction
// @Router /api/transactions/purchases [get]
func ListPurchases(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		userID := userIDVal.(string)
		limit, offset := parsePagination(c)
		var txs []models.Transaction
		if err := db.Model(&models.Transaction{}).
			Select("transactions.*, listings.title as listing_title").
			Joins("LEFT JOIN listings ON listings.id = transactions.listing_id").
			Where("transactions.buyer_id = ?", userID).
			Order("transactions.created_at desc").
			Limit(limit).Offset(offset).Find(&txs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, txs)
	}
}

// ListSales godoc
// @Summary История продаж пользователя
// @Description Записи журнала сделок, где пользователь — продавец.
// @Tags transactions
// @Security BearerAuth
// @Produce json
// @Param limit query int false "лимит"
// @Param offset query int false "смещение"
// @Success 200 {array} models.Transaction
// @Router /api/transactions/sales [get]
func ListSales(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		userID := userIDVal.(string)
		limit, offset := parsePagination(c)
		var txs []models.Transaction
		if err := db.Model(&models.Transaction{}).
			Select("transactions.*, listings.title as listing_title").
			Joins("LEFT JOIN listings ON listings.id = transactions.listing_id").
			Where("transactions.seller_id = ?", userID).
			Order("transactions.created_at desc").
			Limit(limit).Offset(offset).Find(&txs).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, txs)
	}
}
