package model

import "time"

// ContactMessage はお問い合わせフォームから送信されたメッセージ。
type ContactMessage struct {
	ID        string
	FullName  string
	Email     string
	Subject   string
	Message   string
	CreatedAt time.Time
}

// Registration は入会申込フォームの1件。
type Registration struct {
	ID          string
	FullName    string
	StudentID   string
	Email       string
	PhoneNumber string
	University  string
	Major       string
	YearOfStudy int
	Division    string
	Experience  string
	Reason      string
	AreaIDs     []int64
	CreatedAt   time.Time
}

// Area は入会申込で選択できるブロックチェーンの関心分野。
type Area struct {
	ID          int64
	Name        string
	Description string
}
