package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"sellit/internal/models"
)

// ReadNotification godoc
// @Summary Отметить уведомление прочитанным
// @Tags notifications
// @Security BearerAuth
// @Produce json
// @Param id path string true "ID уведомления"
// @Success 200 {object} models.Notification
// @Failure 404 {object} ErrorResponse
// @Router /api/notifications/{id}/read [patch]
func ReadNotification(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		userID := userIDVal.(string)
		id := c.Param("id")
		var n models.Notification
		if err := db.Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "invalid notification"})
			return
		}
		now := time.Now()
		if err := db.Model(&n).Update("read_at", now).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		n.ReadAt = &now
		c.JSON(http.StatusOK, n)
	}
}
