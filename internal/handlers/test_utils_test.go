package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"sellit/internal/escrow"
	"sellit/internal/models"
	"sellit/internal/services"
	"sellit/internal/services/storage"
)

// setupTest создаёт in-memory БД, кеш и маршруты для тестов.
func setupTest(t *testing.T) (*gorm.DB, *gin.Engine, map[string]time.Duration) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("db open: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Token{},
		&models.Country{},
		&models.Category{},
		&models.Listing{},
		&models.Transaction{},
		&models.Notification{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ttl := map[string]time.Duration{"access": time.Minute, "refresh": time.Hour}

	mr := miniredis.RunT(t)
	views := services.NewViewCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	store, err := storage.New("", "", "", "", false)
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	eng := escrow.NewEngine(db)

	r := gin.Default()
	r.GET("/health", Health(db))

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", Register(db, ttl))
	auth.POST("/login", Login(db, ttl))
	auth.POST("/refresh", Refresh(db, ttl))
	auth.GET("/recover/:email", RecoverChallenge(db))
	auth.POST("/recover", Recover(db, ttl))
	auth.Use(AuthMiddleware(db))
	auth.GET("/profile", Profile(db))
	auth.POST("/2fa/enable", Enable2FA(db))
	auth.POST("/logout", Logout(db))

	api.GET("/listings", ListListings(db, store))
	api.GET("/listings/trending", TrendingListings(db, store, views))
	api.GET("/listings/:id", GetListing(db, store, views))
	api.GET("/categories", GetCategories(db))

	priv := api.Group("/")
	priv.Use(AuthMiddleware(db))
	priv.GET("/countries", GetCountries(db))
	priv.POST("/listings", CreateListing(db))
	priv.POST("/listings/:id/image", UploadListingImage(db, store))
	priv.POST("/escrow/commit/:listingId", CommitEscrow(db, eng))
	priv.POST("/escrow/verify/:listingId", VerifyEscrow(db, eng))
	priv.GET("/transactions/purchases", ListPurchases(db))
	priv.GET("/transactions/sales", ListSales(db))
	priv.GET("/notifications", ListNotifications(db))
	priv.PATCH("/notifications/:id/read", ReadNotification(db))
	priv.POST("/notifications/read-all", ReadAllNotifications(db))
	priv.GET("/ws/notifications", NotificationsWS(db))

	return db, r, ttl
}

// registerUser регистрирует пользователя и возвращает access токен.
func registerUser(t *testing.T, r *gin.Engine, email string) string {
	t.Helper()
	body := map[string]string{
		"name":             "Student " + email,
		"email":            email,
		"password":         "pass",
		"password_confirm": "pass",
		"campus":           "North Campus",
		"hostel":           "Block C",
	}
	b, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/auth/register", bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("register %s status %d: %s", email, w.Code, w.Body.String())
	}
	var resp RegisterResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("register response: %v", err)
	}
	return resp.AccessToken
}

func userByEmail(t *testing.T, db *gorm.DB, email string) models.User {
	t.Helper()
	var u models.User
	if err := db.Where("email = ?", email).First(&u).Error; err != nil {
		t.Fatalf("user %s: %v", email, err)
	}
	return u
}

// doJSON выполняет запрос с опциональным телом и bearer токеном.
func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf *bytes.Buffer
	if body != nil {
		b, _ := json.Marshal(body)
		buf = bytes.NewBuffer(b)
	} else {
		buf = bytes.NewBuffer(nil)
	}
	req, _ := http.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// createListingVia создаёт объявление через API и возвращает его.
func createListingVia(t *testing.T, r *gin.Engine, token, title, category, price string) models.Listing {
	t.Helper()
	w := doJSON(t, r, "POST", "/api/listings", token, ListingRequest{
		Title:    title,
		Price:    price,
		Category: category,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("create listing status %d: %s", w.Code, w.Body.String())
	}
	var l models.Listing
	if err := json.Unmarshal(w.Body.Bytes(), &l); err != nil {
		t.Fatalf("listing response: %v", err)
	}
	return l
}
