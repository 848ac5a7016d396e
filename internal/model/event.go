package model

import "time"

// EventStatus はイベントの公開状態を表す。
type EventStatus string

const (
	EventStatusDraft     EventStatus = "draft"
	EventStatusPublished EventStatus = "published"
	EventStatusCancelled EventStatus = "cancelled"
	EventStatusCompleted EventStatus = "completed"
)

// Valid は定義済みの状態かどうかを返す。
func (s EventStatus) Valid() bool {
	switch s {
	case EventStatusDraft, EventStatusPublished, EventStatusCancelled, EventStatusCompleted:
		return true
	default:
		return false
	}
}

// Counter はイベント・ブログの加算可能なカウンター種別。
type Counter string

const (
	CounterViews    Counter = "views"
	CounterLikes    Counter = "likes"
	CounterComments Counter = "comments"
)

// Category はイベントまたはブログのカテゴリ。
type Category struct {
	ID   int64
	Name string
}

// Event はクラブが開催するイベントを表す。
// IDはUUIDで、これが閲覧数管理などで使う正規の識別子となる。
type Event struct {
	ID               string
	Slug             string
	Title            string
	Date             time.Time
	Time             string // "15:04" 形式の開始時刻
	Location         string
	Excerpt          string
	Image            string
	Views            int
	Likes            int
	Comments         int
	Status           EventStatus
	RegistrationLink string
	Content          string // サニタイズ済みHTML
	CategoryID       *int64
	Category         *Category
	Schedules        []EventSchedule
	Speakers         []EventSpeaker
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// EventSchedule はイベント当日のタイムテーブルの1行。
type EventSchedule struct {
	ID          int64
	EventID     string
	Time        string
	Date        *time.Time
	Title       string
	Description string
}

// EventSpeaker はイベント登壇者。
type EventSpeaker struct {
	ID        int64
	EventID   string
	Name      string
	Role      string
	AvatarURL string
	Bio       string
}
