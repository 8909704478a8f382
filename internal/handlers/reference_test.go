package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"sellit/internal/db"
	"sellit/internal/models"
)

func TestReferenceEndpoints(t *testing.T) {
	gdb, r, _ := setupTest(t)

	if err := db.SeedCountries(gdb); err != nil {
		t.Fatalf("seed countries: %v", err)
	}
	if err := db.SeedCategories(gdb); err != nil {
		t.Fatalf("seed categories: %v", err)
	}

	// Категории публичны
	w := doJSON(t, r, "GET", "/api/categories", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("categories status %d", w.Code)
	}
	var cats []models.Category
	json.Unmarshal(w.Body.Bytes(), &cats)
	if len(cats) == 0 {
		t.Fatalf("empty categories")
	}
	found := false
	for _, c := range cats {
		if c.Name == "Electronics" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Electronics category missing")
	}

	// Страны требуют авторизации
	w = doJSON(t, r, "GET", "/api/countries", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated countries status %d", w.Code)
	}

	token := registerUser(t, r, "ref-user@uni.edu")
	w = doJSON(t, r, "GET", "/api/countries", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("countries status %d", w.Code)
	}
	var countries []models.Country
	json.Unmarshal(w.Body.Bytes(), &countries)
	if len(countries) < 100 {
		t.Fatalf("countries count %d", len(countries))
	}
}
