package entity

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	Email        string    `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	Username     string    `json:"username" gorm:"type:varchar(100);uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	Modules      []Module  `json:"modules,omitempty" gorm:"foreignKey:UserID"`
}

// BeforeCreate assigns the UUID in the application so the same model works on
// SQLite, which has no uuid_generate_v4().
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
