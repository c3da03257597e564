package models

import "time"

type User struct {
	ID         int64     `yaml:"id" json:"id"`
	Name       string    `yaml:"name" json:"name"`
	Email      string    `yaml:"email" json:"email"`
	TelegramID int64     `yaml:"telegram_id" json:"telegram_id,omitempty"`
	CreatedAt  time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt  time.Time `yaml:"updated_at" json:"updated_at"`
}
