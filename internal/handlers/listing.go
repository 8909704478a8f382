package handlers

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"sellit/internal/models"
	"sellit/internal/services"
	"sellit/internal/services/storage"
	"sellit/internal/utils"
)

const imageURLTTL = time.Hour

type ListingRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Condition   string `json:"condition"`
	Location    string `json:"location"`
	IsUrgent    bool   `json:"is_urgent"`
}

// ListingResponse — объявление вместе с публичной частью профиля продавца.
type ListingResponse struct {
	models.Listing
	Seller   models.PublicUser `json:"seller"`
	ImageURL string            `json:"imageUrl,omitempty"`
}

type UploadImageResponse struct {
	ImageURL string `json:"imageUrl"`
}

func listingResponse(c *gin.Context, store storage.Storage, l models.Listing, withPhone bool) ListingResponse {
	resp := ListingResponse{Listing: l, Seller: l.Seller.Public(withPhone)}
	if l.ImageObject != "" && store != nil {
		if u, err := store.GetURL(c.Request.Context(), l.ImageObject, imageURLTTL); err == nil {
			resp.ImageURL = u
		}
	}
	return resp
}

// ListListings godoc
// @Summary Лента доступных объявлений
// @Description Фильтры: категория, текстовый поиск по названию и описанию, сортировка.
// @Tags listings
// @Produce json
// @Param category query string false "категория"
// @Param search query string false "поисковая строка"
// @Param sort query string false "Newest | Price: Low to High | Price: High to Low"
// @Success 200 {array} ListingResponse
// @Router /api/listings [get]
func ListListings(db *gorm.DB, store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := db.Model(&models.Listing{}).Preload("Seller").
			Where("status = ?", models.ListingStatusAvailable)

		if category := c.Query("category"); category != "" && category != "All Categories" {
			q = q.Where("category = ?", category)
		}
		if search := c.Query("search"); search != "" {
			like := "%" + search + "%"
			q = q.Where("(title LIKE ? OR description LIKE ?)", like, like)
		}
		switch c.Query("sort") {
		case "Price: Low to High":
			q = q.Order("price asc")
		case "Price: High to Low":
			q = q.Order("price desc")
		default:
			q = q.Order("created_at desc")
		}

		var listings []models.Listing
		if err := q.Find(&listings).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		resp := make([]ListingResponse, 0, len(listings))
		for _, l := range listings {
			resp = append(resp, listingResponse(c, store, l, false))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// CreateListing godoc
// @Summary Создать объявление
// @Tags listings
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body ListingRequest true "данные"
// @Success 200 {object} models.Listing
// @Failure 400 {object} ErrorResponse
// @Router /api/listings [post]
func CreateListing(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		userID := userIDVal.(string)

		var r ListingRequest
		if err := c.BindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		if r.Title == "" || r.Category == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "title and category required"})
			return
		}
		price, err := decimal.NewFromString(r.Price)
		if err != nil || price.IsNegative() {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid price"})
			return
		}
		condition := r.Condition
		if condition == "" {
			condition = models.ConditionFairlyUsed
		}
		switch condition {
		case models.ConditionBrandNew, models.ConditionLikeNew, models.ConditionFairlyUsed:
		default:
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid condition"})
			return
		}

		listing := models.Listing{
			Title:       r.Title,
			Description: r.Description,
			Price:       price,
			Category:    r.Category,
			Condition:   condition,
			Location:    r.Location,
			IsUrgent:    r.IsUrgent,
			SellerID:    userID,
			Status:      models.ListingStatusAvailable,
		}
		if err := db.Create(&listing).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, listing)
	}
}

// GetListing godoc
// @Summary Просмотр объявления
// @Description Увеличивает счётчик просмотров (БД + redis-кеш популярности).
// @Tags listings
// @Produce json
// @Param id path string true "ID объявления"
// @Success 200 {object} ListingResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/listings/{id} [get]
func GetListing(db *gorm.DB, store storage.Storage, views *services.ViewCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var l models.Listing
		if err := db.Preload("Seller").Where("id = ?", id).First(&l).Error; err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing not found"})
			return
		}

		db.Model(&models.Listing{}).Where("id = ?", id).
			UpdateColumn("view_count", gorm.Expr("view_count + 1"))
		l.ViewCount++
		_ = views.AddView(c.Request.Context(), id)

		c.JSON(http.StatusOK, listingResponse(c, store, l, true))
	}
}

// TrendingListings godoc
// @Summary Самые просматриваемые объявления
// @Tags listings
// @Produce json
// @Param limit query int false "лимит"
// @Success 200 {array} ListingResponse
// @Router /api/listings/trending [get]
func TrendingListings(db *gorm.DB, store storage.Storage, views *services.ViewCache) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := parsePagination(c)
		ids, err := views.Trending(c.Request.Context(), int64(limit))
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "cache error"})
			return
		}
		if len(ids) == 0 {
			c.JSON(http.StatusOK, []ListingResponse{})
			return
		}
		var listings []models.Listing
		if err := db.Preload("Seller").
			Where("id IN ? AND status = ?", ids, models.ListingStatusAvailable).
			Find(&listings).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		byID := make(map[string]models.Listing, len(listings))
		for _, l := range listings {
			byID[l.ID] = l
		}
		resp := make([]ListingResponse, 0, len(ids))
		for _, id := range ids {
			if l, ok := byID[id]; ok {
				resp = append(resp, listingResponse(c, store, l, false))
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// UploadListingImage godoc
// @Summary Загрузить фотографию объявления
// @Tags listings
// @Security BearerAuth
// @Accept mpfd
// @Produce json
// @Param id path string true "ID объявления"
// @Param image formData file true "фотография"
// @Success 200 {object} UploadImageResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/listings/{id}/image [post]
func UploadListingImage(db *gorm.DB, store storage.Storage) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		id := c.Param("id")
		var l models.Listing
		if err := db.Where("id = ?", id).First(&l).Error; err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing not found"})
			return
		}
		if l.SellerID != userIDVal.(string) {
			c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden"})
			return
		}

		fh, err := c.FormFile("image")
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "image required"})
			return
		}
		f, err := fh.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid file"})
			return
		}
		defer f.Close()

		suffix, _ := utils.GenerateNanoID()
		objectName := "listings/" + l.ID + "/" + suffix + filepath.Ext(fh.Filename)
		contentType := fh.Header.Get("Content-Type")
		if _, err := store.Upload(c.Request.Context(), objectName, f, fh.Size, contentType); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "upload failed"})
			return
		}
		if err := db.Model(&models.Listing{}).Where("id = ?", l.ID).
			UpdateColumn("image_object", objectName).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		u, err := store.GetURL(c.Request.Context(), objectName, imageURLTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "url failed"})
			return
		}
		c.JSON(http.StatusOK, UploadImageResponse{ImageURL: u})
	}
}
