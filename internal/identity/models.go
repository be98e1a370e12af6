package identity

import "time"

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleGuest Role = "guest"
)

type Preferences struct {
	Theme        string `gorm:"type:varchar(16);not null;default:system" json:"theme"`
	DefaultModel string `gorm:"type:varchar(64);not null" json:"default_model"`
	AutoSave     bool   `gorm:"not null" json:"auto_save"`
}

type User struct {
	ID           uint64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username     string      `gorm:"type:varchar(64);uniqueIndex;not null" json:"username"`
	Email        string      `gorm:"type:varchar(128);uniqueIndex;not null" json:"email"`
	PasswordHash string      `gorm:"type:varchar(128);not null" json:"-"`
	Role         Role        `gorm:"type:varchar(16);not null" json:"role"`
	Preferences  Preferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
	CreatedAt    time.Time   `json:"created_at"`
	LastLoginAt  time.Time   `json:"last_login_at"`
}

func (User) TableName() string { return "users" }
