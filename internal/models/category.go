package models

import (
	"gorm.io/gorm"
	"sellit/internal/utils"
)

type Category struct {
	ID   string `gorm:"primaryKey;size:21" json:"id"`
	Name string `gorm:"type:varchar(100);unique;not null" json:"name"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) (err error) {
	if c.ID == "" {
		c.ID, err = utils.GenerateNanoID()
	}
	return
}
