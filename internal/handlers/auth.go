package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	bip39 "github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"sellit/internal/models"
	"sellit/internal/utils"
)

// Общие структуры запросов и ответов для Swagger и тестов

type RegisterRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Phone           string `json:"phone"`
	Campus          string `json:"campus"`
	Hostel          string `json:"hostel"`
}

type MnemonicWord struct {
	Position int    `json:"position"`
	Word     string `json:"word"`
}

type RegisterResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	Mnemonic     []MnemonicWord `json:"mnemonic"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type RecoverChallengeResponse struct {
	Positions []int `json:"positions"`
}

type RecoverPhrase struct {
	Position int    `json:"position"`
	Word     string `json:"word"`
}

type RecoverRequest struct {
	Email           string          `json:"email"`
	Phrases         []RecoverPhrase `json:"phrases"`
	NewPassword     string          `json:"new_password"`
	PasswordConfirm string          `json:"password_confirm"`
}

type Enable2FARequest struct {
	Password string `json:"password"`
}

type Enable2FAResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

type ProfileResponse struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Campus       string `json:"campus"`
	Hostel       string `json:"hostel"`
	TwoFAEnabled bool   `json:"twofa_enabled"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

func issueTokens(db *gorm.DB, userID string, ttl map[string]time.Duration) TokenResponse {
	accessStr, _ := utils.GenerateNanoID()
	refreshStr, _ := utils.GenerateNanoID()
	access := models.Token{UserID: userID, Token: accessStr, Type: "access", ExpiresAt: time.Now().Add(ttl["access"])}
	refresh := models.Token{UserID: userID, Token: refreshStr, Type: "refresh", ExpiresAt: time.Now().Add(ttl["refresh"])}
	db.Create(&access)
	db.Create(&refresh)
	return TokenResponse{AccessToken: accessStr, RefreshToken: refreshStr}
}

// Register godoc
// @Summary Регистрация студента
// @Description Создаёт аккаунт с уникальным email, хешем пароля и мнемонической фразой восстановления
// @Tags auth
// @Accept json
// @Produce json
// @Param input body RegisterRequest true "данные регистрации"
// @Success 200 {object} RegisterResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/auth/register [post]
func Register(db *gorm.DB, ttl map[string]time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r RegisterRequest
		if err := c.BindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		if r.Email == "" || r.Password == "" {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "email and password required"})
			return
		}
		if r.Password != r.PasswordConfirm {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "passwords do not match"})
			return
		}
		var count int64
		db.Model(&models.User{}).Where("email = ?", r.Email).Count(&count)
		if count > 0 {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "user already exists"})
			return
		}
		// Университетский email не обязателен: пропускаем, но отмечаем в логе
		if !strings.HasSuffix(r.Email, ".edu") && !strings.Contains(r.Email, "university") {
			log.Printf("non-university email registered: %s", r.Email)
		}
		pwdHash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "hash error"})
			return
		}
		entropy, err := bip39.NewEntropy(128)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "entropy error"})
			return
		}
		mnemonic, err := bip39.NewMnemonic(entropy)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "mnemonic error"})
			return
		}
		words := strings.Split(mnemonic, " ")
		hashes := make([]string, len(words))
		respMn := make([]MnemonicWord, len(words))
		for i, w := range words {
			h := sha256.Sum256([]byte(w))
			hashes[i] = hex.EncodeToString(h[:])
			respMn[i] = MnemonicWord{Position: i + 1, Word: w}
		}
		hashesJSON, _ := json.Marshal(hashes)
		pwd := string(pwdHash)
		user := models.User{
			Name:     r.Name,
			Email:    r.Email,
			Password: &pwd,
			Phone:    r.Phone,
			Campus:   r.Campus,
			Hostel:   r.Hostel,
			Mnemonic: datatypes.JSON(hashesJSON),
		}
		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		tok := issueTokens(db, user.ID, ttl)
		c.JSON(http.StatusOK, RegisterResponse{
			AccessToken:  tok.AccessToken,
			RefreshToken: tok.RefreshToken,
			Mnemonic:     respMn,
		})
	}
}

// Login godoc
// @Summary Вход студента
// @Description Аутентифицирует по email и паролю и выдаёт пару токенов. При включённой 2FA требуется код.
// @Tags auth
// @Accept json
// @Produce json
// @Param input body LoginRequest true "учётные данные"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/login [post]
func Login(db *gorm.DB, ttl map[string]time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r LoginRequest
		if err := c.BindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		var user models.User
		if err := db.Where("email = ?", r.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		if user.Password == nil || bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(r.Password)) != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		if user.TwoFAEnabled {
			if r.Code == "" || user.TOTPSecret == nil || !totp.Validate(r.Code, *user.TOTPSecret) {
				c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid code"})
				return
			}
		}
		c.JSON(http.StatusOK, issueTokens(db, user.ID, ttl))
	}
}

// Refresh godoc
// @Summary Обновление access токена
// @Tags auth
// @Accept json
// @Produce json
// @Param input body RefreshRequest true "refresh токен"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/refresh [post]
func Refresh(db *gorm.DB, ttl map[string]time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r RefreshRequest
		if err := c.BindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		var token models.Token
		if err := db.Where("token = ? AND type = ?", r.RefreshToken, "refresh").First(&token).Error; err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid token"})
			return
		}
		if token.ExpiresAt.Before(time.Now()) {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "token expired"})
			return
		}
		db.Delete(&token)
		c.JSON(http.StatusOK, issueTokens(db, token.UserID, ttl))
	}
}

// RecoverChallenge godoc
// @Summary Запрос позиций мнемоники для восстановления
// @Tags auth
// @Produce json
// @Param email path string true "email"
// @Success 200 {object} RecoverChallengeResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/auth/recover/{email} [get]
func RecoverChallenge(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.Param("email")
		var user models.User
		if err := db.Where("email = ?", email).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}
		var hashes []string
		if err := json.Unmarshal(user.Mnemonic, &hashes); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "mnemonic error"})
			return
		}
		if len(hashes) < 3 {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "mnemonic too short"})
			return
		}
		perm := rand.Perm(len(hashes))
		idx := []int{perm[0] + 1, perm[1] + 1, perm[2] + 1}
		c.JSON(http.StatusOK, RecoverChallengeResponse{Positions: idx})
	}
}

// Recover godoc
// @Summary Восстановление доступа по мнемонике
// @Tags auth
// @Accept json
// @Produce json
// @Param input body RecoverRequest true "фразы и новый пароль"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/auth/recover [post]
func Recover(db *gorm.DB, ttl map[string]time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		var r RecoverRequest
		if err := c.BindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		var user models.User
		if err := db.Where("email = ?", r.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "not found"})
			return
		}
		var hashes []string
		if err := json.Unmarshal(user.Mnemonic, &hashes); err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "mnemonic error"})
			return
		}
		if len(r.Phrases) != 3 {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "need 3 phrases"})
			return
		}
		for _, p := range r.Phrases {
			if p.Position <= 0 || p.Position > len(hashes) {
				c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid position"})
				return
			}
			h := sha256.Sum256([]byte(p.Word))
			if hex.EncodeToString(h[:]) != hashes[p.Position-1] {
				c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid phrase"})
				return
			}
		}
		if r.NewPassword != r.PasswordConfirm {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "passwords do not match"})
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(r.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "hash error"})
			return
		}
		pwd := string(hash)
		user.Password = &pwd
		if err := db.Save(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, issueTokens(db, user.ID, ttl))
	}
}

// Profile godoc
// @Summary Профиль текущего пользователя
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} ProfileResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/profile [get]
func Profile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		var user models.User
		if err := db.Where("id = ?", userIDVal.(string)).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		c.JSON(http.StatusOK, ProfileResponse{
			Name:         user.Name,
			Email:        user.Email,
			Phone:        user.Phone,
			Campus:       user.Campus,
			Hostel:       user.Hostel,
			TwoFAEnabled: user.TwoFAEnabled,
		})
	}
}

// Enable2FA godoc
// @Summary Включить 2FA
// @Tags auth
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param input body Enable2FARequest true "пароль"
// @Success 200 {object} Enable2FAResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/2fa/enable [post]
func Enable2FA(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		var r Enable2FARequest
		if err := c.BindJSON(&r); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid json"})
			return
		}
		var user models.User
		if err := db.Where("id = ?", userIDVal.(string)).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		if user.Password == nil || bcrypt.CompareHashAndPassword([]byte(*user.Password), []byte(r.Password)) != nil {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid credentials"})
			return
		}
		key, err := totp.Generate(totp.GenerateOpts{Issuer: "sellit", AccountName: user.Email})
		if err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "totp error"})
			return
		}
		secret := key.Secret()
		user.TOTPSecret = &secret
		user.TwoFAEnabled = true
		if err := db.Save(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "db error"})
			return
		}
		c.JSON(http.StatusOK, Enable2FAResponse{Secret: secret, URL: key.URL()})
	}
}

// Logout godoc
// @Summary Выход пользователя
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 401 {object} ErrorResponse
// @Router /api/auth/logout [post]
func Logout(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDVal, ok := c.Get("user_id")
		if !ok {
			c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "no user"})
			return
		}
		userID, _ := userIDVal.(string)
		db.Where("user_id = ?", userID).Delete(&models.Token{})
		c.JSON(http.StatusOK, StatusResponse{Status: "logged out"})
	}
}

func AuthMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization"})
			return
		}
		tokenStr := parts[1]
		var token models.Token
		if err := db.Where("token = ? AND type = ?", tokenStr, "access").First(&token).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		if token.ExpiresAt.Before(time.Now()) {
			db.Delete(&token)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token expired"})
			return
		}
		c.Set("user_id", token.UserID)
		c.Next()
	}
}
