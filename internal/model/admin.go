package model

import "time"

// Admin は管理画面にログインできる運営メンバー。
type Admin struct {
	ID           string
	Username     string
	Email        string
	FullName     string
	PhoneNumber  string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Session は管理者のログインセッションを表す。
type Session struct {
	ID        string
	AdminID   string
	ExpiresAt time.Time
	CreatedAt time.Time
}
