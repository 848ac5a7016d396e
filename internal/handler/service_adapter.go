package handler

import (
	"time"

	"github.com/AnhPhix3405/bpsclub-web/internal/admin"
	"github.com/AnhPhix3405/bpsclub-web/internal/blog"
	"github.com/AnhPhix3405/bpsclub-web/internal/contact"
	"github.com/AnhPhix3405/bpsclub-web/internal/event"
	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// dateLayout はイベント日付のJSON表現。
const dateLayout = "2006-01-02"

type categoryResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type tagResponse struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type scheduleResponse struct {
	ID          int64  `json:"id"`
	Time        string `json:"time"`
	Date        string `json:"date,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type speakerResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Role      string `json:"role,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Bio       string `json:"bio,omitempty"`
}

// eventResponse はイベントのAPIレスポンス。
// 一覧ではタイムテーブルと登壇者を省略する。
type eventResponse struct {
	ID               string             `json:"id"`
	Slug             string             `json:"slug"`
	Title            string             `json:"title"`
	Date             string             `json:"date"`
	Time             string             `json:"time"`
	Location         string             `json:"location"`
	Excerpt          string             `json:"excerpt"`
	Image            string             `json:"image"`
	Views            int                `json:"views"`
	Likes            int                `json:"likes"`
	Comments         int                `json:"comments"`
	Status           string             `json:"status"`
	RegistrationLink string             `json:"registration_link,omitempty"`
	Content          string             `json:"content,omitempty"`
	Category         *categoryResponse  `json:"category"`
	Schedules        []scheduleResponse `json:"schedules,omitempty"`
	Speakers         []speakerResponse  `json:"speakers,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// blogResponse はブログ記事のAPIレスポンス。
// contentはレンダリング済みHTML。markdownは管理APIのみで返す。
type blogResponse struct {
	ID               string            `json:"id"`
	Slug             string            `json:"slug"`
	Title            string            `json:"title"`
	ShortDescription string            `json:"short_description"`
	ThumbnailURL     string            `json:"thumbnail_url"`
	Author           string            `json:"author"`
	Content          string            `json:"content,omitempty"`
	Markdown         string            `json:"markdown,omitempty"`
	Views            int               `json:"views"`
	Status           string            `json:"status"`
	Category         *categoryResponse `json:"category"`
	Tags             []tagResponse     `json:"tags,omitempty"`
	PublishedAt      *time.Time        `json:"published_at,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

type areaResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type contactResponse struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Subject   string    `json:"subject"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type registrationResponse struct {
	ID              string    `json:"id"`
	FullName        string    `json:"full_name"`
	StudentID       string    `json:"student_id"`
	Email           string    `json:"email"`
	PhoneNumber     string    `json:"phone_number"`
	University      string    `json:"university"`
	Major           string    `json:"major"`
	YearOfStudy     int       `json:"year_of_study"`
	Division        string    `json:"division"`
	Experience      string    `json:"experience,omitempty"`
	Reason          string    `json:"reason"`
	BlockchainAreas []int64   `json:"blockchain_areas"`
	CreatedAt       time.Time `json:"created_at"`
}

type adminResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
}

func toCategoryResponse(c *model.Category) *categoryResponse {
	if c == nil {
		return nil
	}
	return &categoryResponse{ID: c.ID, Name: c.Name}
}

func toCategoryResponses(categories []model.Category) []categoryResponse {
	results := make([]categoryResponse, len(categories))
	for i, c := range categories {
		results[i] = categoryResponse{ID: c.ID, Name: c.Name}
	}
	return results
}

func toTagResponses(tags []model.Tag) []tagResponse {
	results := make([]tagResponse, len(tags))
	for i, t := range tags {
		results[i] = tagResponse{ID: t.ID, Name: t.Name, Slug: t.Slug}
	}
	return results
}

// toEventResponse はmodel.EventからAPIレスポンスに変換する。
func toEventResponse(ev *model.Event) eventResponse {
	resp := eventResponse{
		ID:               ev.ID,
		Slug:             ev.Slug,
		Title:            ev.Title,
		Date:             ev.Date.Format(dateLayout),
		Time:             ev.Time,
		Location:         ev.Location,
		Excerpt:          ev.Excerpt,
		Image:            ev.Image,
		Views:            ev.Views,
		Likes:            ev.Likes,
		Comments:         ev.Comments,
		Status:           string(ev.Status),
		RegistrationLink: ev.RegistrationLink,
		Content:          ev.Content,
		Category:         toCategoryResponse(ev.Category),
		CreatedAt:        ev.CreatedAt,
		UpdatedAt:        ev.UpdatedAt,
	}
	for _, s := range ev.Schedules {
		sr := scheduleResponse{ID: s.ID, Time: s.Time, Title: s.Title, Description: s.Description}
		if s.Date != nil {
			sr.Date = s.Date.Format(dateLayout)
		}
		resp.Schedules = append(resp.Schedules, sr)
	}
	for _, sp := range ev.Speakers {
		resp.Speakers = append(resp.Speakers, speakerResponse{
			ID:        sp.ID,
			Name:      sp.Name,
			Role:      sp.Role,
			AvatarURL: sp.AvatarURL,
			Bio:       sp.Bio,
		})
	}
	return resp
}

func toEventResponses(events []*model.Event) []eventResponse {
	results := make([]eventResponse, len(events))
	for i, ev := range events {
		results[i] = toEventResponse(ev)
	}
	return results
}

// toBlogResponse はmodel.BlogからAPIレスポンスに変換する。
// withMarkdownがtrueの場合はMarkdownソースも含める。
func toBlogResponse(b *model.Blog, withMarkdown bool) blogResponse {
	resp := blogResponse{
		ID:               b.ID,
		Slug:             b.Slug,
		Title:            b.Title,
		ShortDescription: b.ShortDescription,
		ThumbnailURL:     b.ThumbnailURL,
		Author:           b.Author,
		Content:          b.ContentHTML,
		Views:            b.Views,
		Status:           string(b.Status),
		Category:         toCategoryResponse(b.Category),
		PublishedAt:      b.PublishedAt,
		CreatedAt:        b.CreatedAt,
		UpdatedAt:        b.UpdatedAt,
	}
	if len(b.Tags) > 0 {
		resp.Tags = toTagResponses(b.Tags)
	}
	if withMarkdown {
		resp.Markdown = b.Content
	}
	return resp
}

func toBlogResponses(blogs []*model.Blog, withMarkdown bool) []blogResponse {
	results := make([]blogResponse, len(blogs))
	for i, b := range blogs {
		results[i] = toBlogResponse(b, withMarkdown)
	}
	return results
}

func toAreaResponses(areas []model.Area) []areaResponse {
	results := make([]areaResponse, len(areas))
	for i, a := range areas {
		results[i] = areaResponse{ID: a.ID, Name: a.Name, Description: a.Description}
	}
	return results
}

func toContactResponse(m *model.ContactMessage) contactResponse {
	return contactResponse{
		ID:        m.ID,
		FullName:  m.FullName,
		Email:     m.Email,
		Subject:   m.Subject,
		Message:   m.Message,
		CreatedAt: m.CreatedAt,
	}
}

func toRegistrationResponse(r *model.Registration) registrationResponse {
	areas := r.AreaIDs
	if areas == nil {
		areas = []int64{}
	}
	return registrationResponse{
		ID:              r.ID,
		FullName:        r.FullName,
		StudentID:       r.StudentID,
		Email:           r.Email,
		PhoneNumber:     r.PhoneNumber,
		University:      r.University,
		Major:           r.Major,
		YearOfStudy:     r.YearOfStudy,
		Division:        r.Division,
		Experience:      r.Experience,
		Reason:          r.Reason,
		BlockchainAreas: areas,
		CreatedAt:       r.CreatedAt,
	}
}

func toAdminResponse(a *model.Admin) adminResponse {
	return adminResponse{
		ID:       a.ID,
		Username: a.Username,
		Email:    a.Email,
		FullName: a.FullName,
	}
}

// --- compile-time interface checks ---

var _ EventServiceInterface = (*event.Service)(nil)
var _ BlogServiceInterface = (*blog.Service)(nil)
var _ ContactServiceInterface = (*contact.Service)(nil)
var _ AuthServiceInterface = (*admin.Service)(nil)
