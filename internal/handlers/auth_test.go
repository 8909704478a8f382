package handlers

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
)

func TestRegisterLoginProfile(t *testing.T) {
	_, r, _ := setupTest(t)

	body := map[string]string{
		"name":             "Ada",
		"email":            "ada@university.edu",
		"password":         "pass",
		"password_confirm": "pass",
		"phone":            "0801234",
		"campus":           "Main",
		"hostel":           "Block A",
	}
	w := doJSON(t, r, "POST", "/api/auth/register", "", body)
	if w.Code != http.StatusOK {
		t.Fatalf("register status %d: %s", w.Code, w.Body.String())
	}
	var reg RegisterResponse
	json.Unmarshal(w.Body.Bytes(), &reg)
	if reg.AccessToken == "" || reg.RefreshToken == "" {
		t.Fatalf("missing tokens")
	}
	if len(reg.Mnemonic) != 12 {
		t.Fatalf("expected 12 mnemonic words, got %d", len(reg.Mnemonic))
	}

	// Повторная регистрация того же email
	w = doJSON(t, r, "POST", "/api/auth/register", "", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register status %d", w.Code)
	}

	// Неверный пароль
	w = doJSON(t, r, "POST", "/api/auth/login", "", LoginRequest{Email: "ada@university.edu", Password: "wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad login status %d", w.Code)
	}

	w = doJSON(t, r, "POST", "/api/auth/login", "", LoginRequest{Email: "ada@university.edu", Password: "pass"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status %d", w.Code)
	}
	var tok TokenResponse
	json.Unmarshal(w.Body.Bytes(), &tok)

	w = doJSON(t, r, "GET", "/api/auth/profile", tok.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("profile status %d", w.Code)
	}
	var p ProfileResponse
	json.Unmarshal(w.Body.Bytes(), &p)
	if p.Email != "ada@university.edu" || p.Campus != "Main" || p.Hostel != "Block A" {
		t.Fatalf("unexpected profile: %+v", p)
	}
}

func TestRefreshRotatesTokens(t *testing.T) {
	_, r, _ := setupTest(t)

	registerUser(t, r, "refresh@uni.edu")

	w := doJSON(t, r, "POST", "/api/auth/login", "", LoginRequest{Email: "refresh@uni.edu", Password: "pass"})
	var tok TokenResponse
	json.Unmarshal(w.Body.Bytes(), &tok)

	w = doJSON(t, r, "POST", "/api/auth/refresh", "", RefreshRequest{RefreshToken: tok.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status %d", w.Code)
	}
	var fresh TokenResponse
	json.Unmarshal(w.Body.Bytes(), &fresh)
	if fresh.AccessToken == tok.AccessToken {
		t.Fatalf("access token not rotated")
	}

	// Использованный refresh токен отозван
	w = doJSON(t, r, "POST", "/api/auth/refresh", "", RefreshRequest{RefreshToken: tok.RefreshToken})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh status %d", w.Code)
	}
}

func TestRecoverByMnemonic(t *testing.T) {
	_, r, _ := setupTest(t)

	body := map[string]string{
		"name":             "Rec",
		"email":            "rec@uni.edu",
		"password":         "pass",
		"password_confirm": "pass",
	}
	w := doJSON(t, r, "POST", "/api/auth/register", "", body)
	if w.Code != http.StatusOK {
		t.Fatalf("register status %d", w.Code)
	}
	var reg RegisterResponse
	json.Unmarshal(w.Body.Bytes(), &reg)
	words := make(map[int]string, len(reg.Mnemonic))
	for _, mw := range reg.Mnemonic {
		words[mw.Position] = mw.Word
	}

	w = doJSON(t, r, "GET", "/api/auth/recover/rec@uni.edu", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("challenge status %d", w.Code)
	}
	var ch RecoverChallengeResponse
	json.Unmarshal(w.Body.Bytes(), &ch)
	if len(ch.Positions) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(ch.Positions))
	}

	req := RecoverRequest{Email: "rec@uni.edu", NewPassword: "newpass", PasswordConfirm: "newpass"}
	for _, pos := range ch.Positions {
		req.Phrases = append(req.Phrases, RecoverPhrase{Position: pos, Word: words[pos]})
	}
	w = doJSON(t, r, "POST", "/api/auth/recover", "", req)
	if w.Code != http.StatusOK {
		t.Fatalf("recover status %d: %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, "POST", "/api/auth/login", "", LoginRequest{Email: "rec@uni.edu", Password: "newpass"})
	if w.Code != http.StatusOK {
		t.Fatalf("login with new password status %d", w.Code)
	}

	// Неверное слово
	bad := RecoverRequest{Email: "rec@uni.edu", NewPassword: "x", PasswordConfirm: "x"}
	for _, pos := range ch.Positions {
		bad.Phrases = append(bad.Phrases, RecoverPhrase{Position: pos, Word: "wrongword"})
	}
	w = doJSON(t, r, "POST", "/api/auth/recover", "", bad)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("bad recover status %d", w.Code)
	}
}

func TestTwoFALogin(t *testing.T) {
	db, r, _ := setupTest(t)

	token := registerUser(t, r, "totp@uni.edu")

	w := doJSON(t, r, "POST", "/api/auth/2fa/enable", token, Enable2FARequest{Password: "pass"})
	if w.Code != http.StatusOK {
		t.Fatalf("enable 2fa status %d: %s", w.Code, w.Body.String())
	}
	var resp Enable2FAResponse
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Secret == "" {
		t.Fatalf("empty totp secret")
	}

	// Без кода вход закрыт
	w = doJSON(t, r, "POST", "/api/auth/login", "", LoginRequest{Email: "totp@uni.edu", Password: "pass"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login without code status %d", w.Code)
	}

	code, err := totp.GenerateCode(resp.Secret, time.Now())
	if err != nil {
		t.Fatalf("generate code: %v", err)
	}
	w = doJSON(t, r, "POST", "/api/auth/login", "", LoginRequest{Email: "totp@uni.edu", Password: "pass", Code: code})
	if w.Code != http.StatusOK {
		t.Fatalf("login with code status %d", w.Code)
	}

	u := userByEmail(t, db, "totp@uni.edu")
	if !u.TwoFAEnabled {
		t.Fatalf("2fa flag not set")
	}
}

func TestLogoutRevokesTokens(t *testing.T) {
	_, r, _ := setupTest(t)

	token := registerUser(t, r, "logout@uni.edu")
	w := doJSON(t, r, "POST", "/api/auth/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status %d", w.Code)
	}
	w = doJSON(t, r, "GET", "/api/auth/profile", token, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("profile after logout status %d", w.Code)
	}
}
