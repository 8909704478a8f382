package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"sellit/internal/models"
	"sellit/internal/notifications"
)

// NotificationsWS godoc
// @Summary Websocket уведомлений
// @Description Подключает пользователя к потоку уведомлений. После подключения сервер отправляет неотправленные уведомления.
// @Tags notifications
// @Security BearerAuth
// @Success 101 {object} models.Notification "Switching Protocols"
// @Failure 401 {object} ErrorResponse
// @Router /api/ws/notifications [get]
func NotificationsWS(db *gorm.DB) gin.HandlerFunc {
	notifications.SetDB(db)
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		userID := userIDVal.(string)

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		notifications.AddUser(userID, conn)
		defer func() {
			notifications.RemoveUser(userID, conn)
			conn.Close()
		}()

		var list []models.Notification
		if err := db.Where("user_id = ? AND read_at IS NULL AND sent_at IS NULL", userID).Find(&list).Error; err == nil {
			for _, n := range list {
				if err := notifications.Send(conn, n); err != nil {
					return
				}
			}
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}
}
