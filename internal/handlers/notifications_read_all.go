package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"sellit/internal/models"
)

// NotificationsReadAllResponse ответ на массовое чтение уведомлений.
type NotificationsReadAllResponse struct {
	Count int `json:"count"`
}

// ReadAllNotifications godoc
// @Summary Отметить все уведомления прочитанными
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Success 200 {object} handlers.NotificationsReadAllResponse
// @Router /api/notifications/read-all [post]
func ReadAllNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		userID := userIDVal.(string)
		now := time.Now()
		res := db.Model(&models.Notification{}).
			Where("user_id = ? AND read_at IS NULL", userID).
			Update("read_at", now)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, NotificationsReadAllResponse{Count: int(res.RowsAffected)})
	}
}
