// Package admin は管理者のログイン、セッション管理を提供する。
package admin

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
	"github.com/AnhPhix3405/bpsclub-web/internal/repository"
)

// ServiceConfig は管理者サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
	BcryptCost    int // 0の場合はbcrypt.DefaultCost
}

// BootstrapInput は初期管理者の作成に使う情報。
type BootstrapInput struct {
	Username string
	Email    string
	Password string
	FullName string
}

// Service は管理者認証に関するビジネスロジックを提供する。
type Service struct {
	adminRepo   repository.AdminRepository
	sessionRepo repository.SessionRepository
	config      ServiceConfig
	logger      *slog.Logger
	now         func() time.Time
	// dummyHash はユーザーが存在しない場合にも比較を行うためのハッシュ。
	dummyHash []byte
}

// NewService はServiceを生成する。
func NewService(
	adminRepo repository.AdminRepository,
	sessionRepo repository.SessionRepository,
	config ServiceConfig,
	logger *slog.Logger,
) *Service {
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	dummy, _ := bcrypt.GenerateFromPassword([]byte("bpsclub-dummy-password"), config.BcryptCost)
	return &Service{
		adminRepo:   adminRepo,
		sessionRepo: sessionRepo,
		config:      config,
		logger:      logger,
		now:         time.Now,
		dummyHash:   dummy,
	}
}

// Login はユーザー名またはメールアドレスとパスワードで認証し、セッションを発行する。
// 失敗理由（ユーザー不在・パスワード誤り）は区別せずに返す。
func (s *Service) Login(ctx context.Context, identifier, password string) (*model.Session, *model.Admin, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, nil, model.NewInvalidCredentialsError()
	}

	admin, err := s.adminRepo.FindByLogin(ctx, identifier)
	if err != nil {
		return nil, nil, fmt.Errorf("管理者の取得に失敗しました: %w", err)
	}
	if admin == nil {
		// 応答時間から存在有無を推測されないよう比較だけは行う
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.logger.Warn("ログインに失敗しました", slog.String("reason", "unknown_admin"))
		return nil, nil, model.NewInvalidCredentialsError()
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("ログインに失敗しました",
			slog.String("reason", "password_mismatch"),
			slog.String("admin_id", admin.ID),
		)
		return nil, nil, model.NewInvalidCredentialsError()
	}

	session, err := s.createSession(ctx, admin.ID)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("管理者がログインしました", slog.String("admin_id", admin.ID))
	return session, admin, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return model.NewUnauthorizedError()
	}

	if err := s.sessionRepo.DeleteByID(ctx, sessionID); err != nil {
		return fmt.Errorf("セッションの削除に失敗しました: %w", err)
	}

	s.logger.Info("管理者がログアウトしました")
	return nil
}

// LogoutAll は管理者の全セッションを破棄する。他の端末のログインも無効になる。
func (s *Service) LogoutAll(ctx context.Context, adminID string) error {
	if adminID == "" {
		return model.NewUnauthorizedError()
	}

	if err := s.sessionRepo.DeleteByAdminID(ctx, adminID); err != nil {
		return fmt.Errorf("セッションの一括削除に失敗しました: %w", err)
	}

	s.logger.Info("管理者の全セッションを破棄しました", slog.String("admin_id", adminID))
	return nil
}

// CurrentAdmin は管理者IDから管理者を取得する。
func (s *Service) CurrentAdmin(ctx context.Context, adminID string) (*model.Admin, error) {
	if adminID == "" {
		return nil, model.NewUnauthorizedError()
	}

	admin, err := s.adminRepo.FindByID(ctx, adminID)
	if err != nil {
		return nil, fmt.Errorf("管理者の取得に失敗しました: %w", err)
	}
	if admin == nil {
		return nil, model.NewUnauthorizedError()
	}
	return admin, nil
}

// Bootstrap は管理者が1人も存在しない場合に初期管理者を作成する。
// 作成した場合はtrueを返す。
func (s *Service) Bootstrap(ctx context.Context, in BootstrapInput) (bool, error) {
	if in.Username == "" || in.Password == "" {
		return false, nil
	}

	n, err := s.adminRepo.Count(ctx)
	if err != nil {
		return false, fmt.Errorf("管理者数の取得に失敗しました: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.config.BcryptCost)
	if err != nil {
		return false, fmt.Errorf("パスワードのハッシュ化に失敗しました: %w", err)
	}

	now := s.now().UTC()
	admin := &model.Admin{
		ID:           uuid.New().String(),
		Username:     strings.TrimSpace(in.Username),
		Email:        strings.TrimSpace(in.Email),
		FullName:     strings.TrimSpace(in.FullName),
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return false, nil
		}
		return false, fmt.Errorf("初期管理者の作成に失敗しました: %w", err)
	}

	s.logger.Info("初期管理者を作成しました",
		slog.String("admin_id", admin.ID),
		slog.String("username", admin.Username),
	)
	return true, nil
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, adminID string) (*model.Session, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("セッションIDの生成に失敗しました: %w", err)
	}

	now := s.now()
	session := &model.Session{
		ID:        sessionID,
		AdminID:   adminID,
		ExpiresAt: now.Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("セッションの保存に失敗しました: %w", err)
	}

	return session, nil
}

// generateSessionID は暗号的に安全なセッションIDを生成する。
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
