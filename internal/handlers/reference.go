package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"sellit/internal/models"
)

// GetCountries godoc
// @Summary Справочник стран
// @Tags reference
// @Security BearerAuth
// @Produce json
// @Success 200 {array} models.Country
// @Router /api/countries [get]
func GetCountries(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []models.Country
		if err := db.Order("name").Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}

// GetCategories godoc
// @Summary Справочник категорий товаров
// @Tags reference
// @Produce json
// @Success 200 {array} models.Category
// @Router /api/categories [get]
func GetCategories(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var list []models.Category
		if err := db.Order("name").Find(&list).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, list)
	}
}
