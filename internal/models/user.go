package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"sellit/internal/utils"
)

type User struct {
	ID           string         `gorm:"primaryKey;size:21"`
	Name         string         `gorm:"type:varchar(255);not null"`
	Email        string         `gorm:"type:varchar(255);not null;unique"`
	Password     *string        `gorm:"type:varchar(255)"`
	Phone        string         `gorm:"type:varchar(50)"`
	Campus       string         `gorm:"type:varchar(255)"`
	Hostel       string         `gorm:"type:varchar(255)"`
	TwoFAEnabled bool           `gorm:"not null;default:false"`
	TOTPSecret   *string        `gorm:"type:varchar(255)"`
	Mnemonic     datatypes.JSON `gorm:"type:json"`
	RegistredAt  time.Time      `gorm:"autoCreateTime"`
}

// PublicUser — часть профиля продавца, видимая другим пользователям.
type PublicUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Phone  string `json:"phone,omitempty"`
	Campus string `json:"campus"`
	Hostel string `json:"hostel"`
}

func (u *User) Public(withPhone bool) PublicUser {
	p := PublicUser{ID: u.ID, Name: u.Name, Campus: u.Campus, Hostel: u.Hostel}
	if withPhone {
		p.Phone = u.Phone
	}
	return p
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID, err = utils.GenerateNanoID()
	}
	return
}
