package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"sellit/internal/models"
)

// ListNotifications godoc
// @Summary Список уведомлений пользователя
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param limit query int false "лимит"
// @Param offset query int false "смещение"
// @Success 200 {array} models.Notification
// @Router /api/notifications [get]
func ListNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		userID := userIDVal.(string)
		limit, offset := parsePagination(c)
		var ns []models.Notification
		if err := db.Where("user_id = ?", userID).
			Order("created_at desc").
			Limit(limit).Offset(offset).Find(&ns).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, ns)
	}
}
