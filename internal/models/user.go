package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/bloomdoula/bloom-be/internal/messaging"
)

// User is a staff member of the practice (admin, provider, or viewer).
type User struct {
	ID    uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name  string    `gorm:"not null" json:"name"`
	Email string    `gorm:"uniqueIndex;not null" json:"email"`
	Phone string    `gorm:"type:varchar(30)" json:"phone"`

	Password string              `gorm:"not null" json:"-"`
	Role     messaging.StaffRole `gorm:"type:varchar(20);not null;index" json:"role"`
	IsActive bool                `gorm:"default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
