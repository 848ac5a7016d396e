// Package contact はお問い合わせと入会申込を扱う。
package contact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
	"github.com/AnhPhix3405/bpsclub-web/internal/repository"
)

// DefaultListLimit は管理画面の一覧で返す既定の件数。
const DefaultListLimit = 100

// Validator は入力構造体を検証する。
type Validator interface {
	Validate(s any) error
}

// MetricsRecorder はフォーム送信を記録する。
type MetricsRecorder interface {
	RecordFormSubmission(form string)
}

// ContactForm はお問い合わせフォームの入力。
type ContactForm struct {
	FullName string `json:"full_name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Subject  string `json:"subject" validate:"max=255"`
	Message  string `json:"message" validate:"required,max=5000"`
}

// RegistrationForm は入会申込フォームの入力。
type RegistrationForm struct {
	FullName    string  `json:"full_name" validate:"required,max=255"`
	StudentID   string  `json:"student_id" validate:"required,max=50"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	PhoneNumber string  `json:"phone_number" validate:"required,phone"`
	University  string  `json:"university" validate:"required,max=255"`
	Major       string  `json:"major" validate:"required,max=255"`
	YearOfStudy int     `json:"year_of_study" validate:"required,min=1,max=6"`
	Division    string  `json:"division" validate:"required,max=100"`
	Experience  string  `json:"experience" validate:"max=2000"`
	Reason      string  `json:"reason" validate:"required,max=2000"`
	AreaIDs     []int64 `json:"blockchain_areas" validate:"max=20"`
}

// Service はお問い合わせ・入会申込のサービス層。
type Service struct {
	repo      repository.ContactRepository
	validator Validator
	metrics   MetricsRecorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewService はServiceを生成する。metricsはnilでもよい。
func NewService(repo repository.ContactRepository, validator Validator, metrics MetricsRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		validator: validator,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

// SubmitContact はお問い合わせを保存する。
func (s *Service) SubmitContact(ctx context.Context, form ContactForm) (*model.ContactMessage, error) {
	form.FullName = strings.TrimSpace(form.FullName)
	form.Email = strings.TrimSpace(form.Email)
	form.Subject = strings.TrimSpace(form.Subject)
	form.Message = strings.TrimSpace(form.Message)
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}

	msg := &model.ContactMessage{
		ID:        uuid.New().String(),
		FullName:  form.FullName,
		Email:     form.Email,
		Subject:   form.Subject,
		Message:   form.Message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("お問い合わせの送信に失敗しました: %w", err)
	}

	s.record("contact")
	s.logger.Info("お問い合わせを受け付けました", slog.String("contact_id", msg.ID))
	return msg, nil
}

// SubmitRegistration は入会申込を保存する。関心分野は全て既存のものでなければならない。
func (s *Service) SubmitRegistration(ctx context.Context, form RegistrationForm) (*model.Registration, error) {
	form.FullName = strings.TrimSpace(form.FullName)
	form.StudentID = strings.TrimSpace(form.StudentID)
	form.Email = strings.TrimSpace(form.Email)
	form.PhoneNumber = strings.TrimSpace(form.PhoneNumber)
	if err := s.validator.Validate(form); err != nil {
		return nil, err
	}

	areaIDs := uniqueIDs(form.AreaIDs)
	if len(areaIDs) > 0 {
		n, err := s.repo.CountAreas(ctx, areaIDs)
		if err != nil {
			return nil, fmt.Errorf("関心分野の確認に失敗しました: %w", err)
		}
		if n != len(areaIDs) {
			return nil, model.NewValidationError("blockchain_areasに存在しない分野が含まれています")
		}
	}

	reg := &model.Registration{
		ID:          uuid.New().String(),
		FullName:    form.FullName,
		StudentID:   form.StudentID,
		Email:       form.Email,
		PhoneNumber: form.PhoneNumber,
		University:  strings.TrimSpace(form.University),
		Major:       strings.TrimSpace(form.Major),
		YearOfStudy: form.YearOfStudy,
		Division:    strings.TrimSpace(form.Division),
		Experience:  strings.TrimSpace(form.Experience),
		Reason:      strings.TrimSpace(form.Reason),
		AreaIDs:     areaIDs,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.CreateRegistration(ctx, reg); err != nil {
		return nil, fmt.Errorf("入会申込の送信に失敗しました: %w", err)
	}

	s.record("registration")
	s.logger.Info("入会申込を受け付けました",
		slog.String("registration_id", reg.ID),
		slog.Int("areas", len(areaIDs)),
	)
	return reg, nil
}

// ListAreas は選択可能な関心分野を返す。
func (s *Service) ListAreas(ctx context.Context) ([]model.Area, error) {
	areas, err := s.repo.ListAreas(ctx)
	if err != nil {
		return nil, fmt.Errorf("関心分野の取得に失敗しました: %w", err)
	}
	return areas, nil
}

// ListContacts はお問い合わせを新しい順に返す。
func (s *Service) ListContacts(ctx context.Context, limit int) ([]*model.ContactMessage, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	msgs, err := s.repo.ListMessages(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("お問い合わせ一覧の取得に失敗しました: %w", err)
	}
	return msgs, nil
}

// ListRegistrations は入会申込を新しい順に返す。
func (s *Service) ListRegistrations(ctx context.Context, limit int) ([]*model.Registration, error) {
	if limit <= 0 || limit > DefaultListLimit {
		limit = DefaultListLimit
	}
	regs, err := s.repo.ListRegistrations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("入会申込一覧の取得に失敗しました: %w", err)
	}
	return regs, nil
}

func (s *Service) record(form string) {
	if s.metrics != nil {
		s.metrics.RecordFormSubmission(form)
	}
}

// uniqueIDs は出現順を保って重複を除く。
func uniqueIDs(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
