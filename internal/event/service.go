// Package event はイベントのドメインロジックを提供する。
package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AnhPhix3405/bpsclub-web/internal/listing"
	"github.com/AnhPhix3405/bpsclub-web/internal/model"
	"github.com/AnhPhix3405/bpsclub-web/internal/repository"
	"github.com/AnhPhix3405/bpsclub-web/internal/slug"
)

// MaxListLimit は一覧取得1回あたりの最大件数。
const MaxListLimit = 100

// dateLayout はイベント日付の入力形式。
const dateLayout = "2006-01-02"

// Sanitizer はイベント本文のHTMLサニタイズを行う。
type Sanitizer interface {
	Sanitize(rawHTML string) string
}

// Validator は入力構造体を検証する。
type Validator interface {
	Validate(s any) error
}

// MetricsRecorder は閲覧数・リアクションの加算を記録する。
type MetricsRecorder interface {
	RecordView(resource string)
	RecordReaction(resource, kind string)
}

// ListParams は一覧取得の条件。
type ListParams struct {
	Sort          string
	Category      string
	Search        string
	Limit         int
	IncludeDrafts bool
}

// ScheduleInput はタイムテーブル1行の入力。
type ScheduleInput struct {
	Time        string `json:"time" validate:"required,clock"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
}

// SpeakerInput は登壇者1人分の入力。
type SpeakerInput struct {
	Name      string `json:"name" validate:"required,max=255"`
	Role      string `json:"role" validate:"max=100"`
	AvatarURL string `json:"avatar_url" validate:"omitempty,http_url"`
	Bio       string `json:"bio" validate:"max=2000"`
}

// Input は管理画面からのイベント作成・更新の入力。
type Input struct {
	Title            string          `json:"title" validate:"required,max=255"`
	Slug             string          `json:"slug" validate:"omitempty,slug,max=255"`
	Date             string          `json:"date" validate:"required,datetime=2006-01-02"`
	Time             string          `json:"time" validate:"omitempty,clock"`
	Location         string          `json:"location" validate:"max=255"`
	Excerpt          string          `json:"excerpt" validate:"max=1000"`
	Image            string          `json:"image" validate:"omitempty,http_url"`
	Status           string          `json:"status" validate:"omitempty,oneof=draft published cancelled completed"`
	RegistrationLink string          `json:"registration_link" validate:"omitempty,http_url"`
	Content          string          `json:"content"`
	CategoryID       *int64          `json:"category_id"`
	Schedules        []ScheduleInput `json:"schedules" validate:"max=50,dive"`
	Speakers         []SpeakerInput  `json:"speakers" validate:"max=50,dive"`
}

// CategoryInput はカテゴリ作成の入力。
type CategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// Service はイベントのサービス層。
type Service struct {
	events     repository.EventRepository
	categories repository.CategoryRepository
	sanitizer  Sanitizer
	validator  Validator
	metrics    MetricsRecorder
	logger     *slog.Logger
	now        func() time.Time
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(
	events repository.EventRepository,
	categories repository.CategoryRepository,
	sanitizer Sanitizer,
	validator Validator,
	metrics MetricsRecorder,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		events:     events,
		categories: categories,
		sanitizer:  sanitizer,
		validator:  validator,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// toQuery は一覧条件をリポジトリのクエリに正規化する。
// カテゴリ "all" と空白のみの検索語は指定なしとして扱う。
func toQuery(p ListParams) repository.ListQuery {
	category := strings.TrimSpace(p.Category)
	if category == listing.AllCategories {
		category = ""
	}
	limit := p.Limit
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	return repository.ListQuery{
		Sort:          listing.ParseSort(p.Sort),
		Category:      category,
		Search:        strings.TrimSpace(p.Search),
		Limit:         limit,
		IncludeDrafts: p.IncludeDrafts,
	}
}

// List は条件に一致するイベントを返す。
func (s *Service) List(ctx context.Context, p ListParams) ([]*model.Event, error) {
	events, err := s.events.List(ctx, toQuery(p))
	if err != nil {
		return nil, fmt.Errorf("イベント一覧の取得に失敗しました: %w", err)
	}
	return events, nil
}

// resolve はUUIDまたはスラッグでイベントを取得する。
// UUIDとして解釈できる参照はIDとして、それ以外はスラッグとして検索する。
func (s *Service) resolve(ctx context.Context, ref string) (*model.Event, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, model.NewEventNotFoundError(ref)
	}

	var ev *model.Event
	var err error
	if id, perr := uuid.Parse(ref); perr == nil {
		ev, err = s.events.FindByID(ctx, id.String())
	} else {
		ev, err = s.events.FindBySlug(ctx, ref)
	}
	if err != nil {
		return nil, fmt.Errorf("イベントの取得に失敗しました: %w", err)
	}
	if ev == nil {
		return nil, model.NewEventNotFoundError(ref)
	}
	return ev, nil
}

// resolvePublic は公開中のイベントのみを返す。下書きは存在しないものとして扱う。
func (s *Service) resolvePublic(ctx context.Context, ref string) (*model.Event, error) {
	ev, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if ev.Status == model.EventStatusDraft {
		return nil, model.NewEventNotFoundError(ref)
	}
	return ev, nil
}

// Get はUUIDまたはスラッグで公開中のイベントをタイムテーブル・登壇者付きで返す。
func (s *Service) Get(ctx context.Context, ref string) (*model.Event, error) {
	ev, err := s.resolvePublic(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.loadDetails(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// GetForAdmin は下書きを含めてイベントを返す。
func (s *Service) GetForAdmin(ctx context.Context, ref string) (*model.Event, error) {
	ev, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.loadDetails(ctx, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

func (s *Service) loadDetails(ctx context.Context, ev *model.Event) error {
	schedules, err := s.events.ListSchedules(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("タイムテーブルの取得に失敗しました: %w", err)
	}
	speakers, err := s.events.ListSpeakers(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("登壇者の取得に失敗しました: %w", err)
	}
	ev.Schedules = schedules
	ev.Speakers = speakers
	return nil
}

// Increment は指定カウンターを1加算する。
func (s *Service) Increment(ctx context.Context, ref string, counter model.Counter) error {
	switch counter {
	case model.CounterViews, model.CounterLikes, model.CounterComments:
	default:
		return model.NewInvalidCounterError(string(counter))
	}

	ev, err := s.resolvePublic(ctx, ref)
	if err != nil {
		return err
	}

	ok, err := s.events.IncrementCounter(ctx, ev.ID, counter)
	if err != nil {
		return fmt.Errorf("イベントの%s加算に失敗しました: %w", counter, err)
	}
	if !ok {
		// 取得と加算の間に削除された
		return model.NewEventNotFoundError(ref)
	}

	if s.metrics != nil {
		if counter == model.CounterViews {
			s.metrics.RecordView("events")
		} else {
			s.metrics.RecordReaction("events", string(counter))
		}
	}
	return nil
}

// IncrementViews は閲覧数を1加算する。
func (s *Service) IncrementViews(ctx context.Context, ref string) error {
	return s.Increment(ctx, ref, model.CounterViews)
}

// IncrementLikes はいいね数を1加算する。
func (s *Service) IncrementLikes(ctx context.Context, ref string) error {
	return s.Increment(ctx, ref, model.CounterLikes)
}

// IncrementComments はコメント数を1加算する。
func (s *Service) IncrementComments(ctx context.Context, ref string) error {
	return s.Increment(ctx, ref, model.CounterComments)
}

// ListCategories はイベントカテゴリを返す。
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("イベントカテゴリの取得に失敗しました: %w", err)
	}
	return categories, nil
}

// GetCategory は指定IDのイベントカテゴリを返す。
func (s *Service) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	c, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("イベントカテゴリの取得に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewCategoryNotFoundError(id)
	}
	return c, nil
}

// Create はイベントを作成する。
// スラッグ未指定の場合はタイトルから生成し、重複時は "-2", "-3"… を付ける。
func (s *Service) Create(ctx context.Context, in Input) (*model.Event, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ev := &model.Event{
		ID:        uuid.New().String(),
		Status:    model.EventStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.apply(ctx, ev, in); err != nil {
		return nil, err
	}

	var err error
	if in.Slug != "" {
		ev.Slug, err = s.requireFreeSlug(ctx, in.Slug)
	} else {
		ev.Slug, err = slug.Unique(ctx, slug.Make(in.Title), "event", s.events.SlugExists)
	}
	if err != nil {
		return nil, err
	}

	if err := s.events.Create(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateError("slug")
		}
		return nil, fmt.Errorf("イベントの作成に失敗しました: %w", err)
	}

	s.logger.Info("イベントを作成しました",
		slog.String("event_id", ev.ID),
		slog.String("slug", ev.Slug),
	)
	return ev, nil
}

// Update はイベントを更新する。カウンターと作成日時は変更しない。
// スラッグ未指定の場合は現在のスラッグを維持する。
func (s *Service) Update(ctx context.Context, ref string, in Input) (*model.Event, error) {
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}

	ev, err := s.resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, ev, in); err != nil {
		return nil, err
	}
	if in.Slug != "" && in.Slug != ev.Slug {
		if ev.Slug, err = s.requireFreeSlug(ctx, in.Slug); err != nil {
			return nil, err
		}
	}
	ev.UpdatedAt = s.now().UTC()

	if err := s.events.Update(ctx, ev); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateError("slug")
		}
		return nil, fmt.Errorf("イベントの更新に失敗しました: %w", err)
	}

	s.logger.Info("イベントを更新しました", slog.String("event_id", ev.ID))
	return ev, nil
}

// Delete はイベントを削除する。
func (s *Service) Delete(ctx context.Context, ref string) error {
	ev, err := s.resolve(ctx, ref)
	if err != nil {
		return err
	}
	ok, err := s.events.Delete(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("イベントの削除に失敗しました: %w", err)
	}
	if !ok {
		return model.NewEventNotFoundError(ref)
	}

	s.logger.Info("イベントを削除しました", slog.String("event_id", ev.ID))
	return nil
}

// CreateCategory はイベントカテゴリを作成する。
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (*model.Category, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := s.validator.Validate(in); err != nil {
		return nil, err
	}
	c, err := s.categories.Create(ctx, in.Name)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewDuplicateError("category")
		}
		return nil, fmt.Errorf("イベントカテゴリの作成に失敗しました: %w", err)
	}
	return c, nil
}

// DeleteCategory はイベントカテゴリを削除する。使用中のカテゴリは削除できない。
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	if _, err := s.GetCategory(ctx, id); err != nil {
		return err
	}
	used, err := s.categories.InUse(ctx, id)
	if err != nil {
		return fmt.Errorf("イベントカテゴリの使用状況の確認に失敗しました: %w", err)
	}
	if used {
		return model.NewCategoryInUseError(id)
	}
	if _, err := s.categories.Delete(ctx, id); err != nil {
		return fmt.Errorf("イベントカテゴリの削除に失敗しました: %w", err)
	}
	return nil
}

// requireFreeSlug は明示指定されたスラッグが未使用であることを確認する。
func (s *Service) requireFreeSlug(ctx context.Context, want string) (string, error) {
	used, err := s.events.SlugExists(ctx, want)
	if err != nil {
		return "", fmt.Errorf("スラッグの確認に失敗しました: %w", err)
	}
	if used {
		return "", model.NewDuplicateError("slug")
	}
	return want, nil
}

// apply は検証済みの入力をイベントに反映する。
func (s *Service) apply(ctx context.Context, ev *model.Event, in Input) error {
	date, err := time.Parse(dateLayout, in.Date)
	if err != nil {
		return model.NewValidationError("dateはYYYY-MM-DD形式で入力してください")
	}

	if in.CategoryID != nil {
		c, err := s.GetCategory(ctx, *in.CategoryID)
		if err != nil {
			return err
		}
		ev.Category = c
	} else {
		ev.Category = nil
	}

	ev.Title = strings.TrimSpace(in.Title)
	ev.Date = date
	ev.Time = in.Time
	ev.Location = strings.TrimSpace(in.Location)
	ev.Excerpt = strings.TrimSpace(in.Excerpt)
	ev.Image = in.Image
	ev.RegistrationLink = in.RegistrationLink
	ev.Content = s.sanitizer.Sanitize(in.Content)
	ev.CategoryID = in.CategoryID
	if in.Status != "" {
		ev.Status = model.EventStatus(in.Status)
	}

	ev.Schedules = make([]model.EventSchedule, 0, len(in.Schedules))
	for _, si := range in.Schedules {
		sc := model.EventSchedule{
			Time:        si.Time,
			Title:       strings.TrimSpace(si.Title),
			Description: strings.TrimSpace(si.Description),
		}
		if si.Date != "" {
			d, err := time.Parse(dateLayout, si.Date)
			if err != nil {
				return model.NewValidationError("schedules.dateはYYYY-MM-DD形式で入力してください")
			}
			sc.Date = &d
		}
		ev.Schedules = append(ev.Schedules, sc)
	}

	ev.Speakers = make([]model.EventSpeaker, 0, len(in.Speakers))
	for _, sp := range in.Speakers {
		ev.Speakers = append(ev.Speakers, model.EventSpeaker{
			Name:      strings.TrimSpace(sp.Name),
			Role:      strings.TrimSpace(sp.Role),
			AvatarURL: sp.AvatarURL,
			Bio:       strings.TrimSpace(sp.Bio),
		})
	}
	return nil
}
