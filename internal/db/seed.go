package db

import (
	"github.com/biter777/countries"
	"gorm.io/gorm"

	"sellit/internal/models"
)

// SeedCountries заполняет таблицу стран перечнем всех стран на английском языке.
// Используется в профиле для иностранных студентов.
func SeedCountries(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Country{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	var list []models.Country
	for _, code := range countries.All() {
		list = append(list, models.Country{Name: code.String()})
	}
	return db.Create(&list).Error
}

// SeedCategories добавляет базовые категории товаров, если таблица пуста.
func SeedCategories(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	cats := []models.Category{
		{Name: "Electronics"},
		{Name: "Home and furniture"},
		{Name: "Books"},
		{Name: "Fashion"},
		{Name: "Kitchen"},
	}
	return db.Create(&cats).Error
}
