package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/AnhPhix3405/bpsclub-web/internal/model"
	"github.com/AnhPhix3405/bpsclub-web/internal/repository"
)

// --- モック定義 ---

type mockAdminRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.Admin, error)
	findByLoginFn func(ctx context.Context, login string) (*model.Admin, error)
	count         int
	createFn      func(ctx context.Context, a *model.Admin) error
}

func (m *mockAdminRepo) FindByID(ctx context.Context, id string) (*model.Admin, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockAdminRepo) FindByLogin(ctx context.Context, login string) (*model.Admin, error) {
	if m.findByLoginFn != nil {
		return m.findByLoginFn(ctx, login)
	}
	return nil, nil
}

func (m *mockAdminRepo) Count(ctx context.Context) (int, error) {
	return m.count, nil
}

func (m *mockAdminRepo) Create(ctx context.Context, a *model.Admin) error {
	if m.createFn != nil {
		return m.createFn(ctx, a)
	}
	return nil
}

type mockSessionRepo struct {
	createFn          func(ctx context.Context, session *model.Session) error
	deleteByIDFn      func(ctx context.Context, id string) error
	deleteByAdminIDFn func(ctx context.Context, adminID string) error
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	if m.createFn != nil {
		return m.createFn(ctx, session)
	}
	return nil
}

func (m *mockSessionRepo) FindByID(_ context.Context, _ string) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	if m.deleteByIDFn != nil {
		return m.deleteByIDFn(ctx, id)
	}
	return nil
}

func (m *mockSessionRepo) DeleteByAdminID(ctx context.Context, adminID string) error {
	if m.deleteByAdminIDFn != nil {
		return m.deleteByAdminIDFn(ctx, adminID)
	}
	return nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(h)
}

func newTestService(admins *mockAdminRepo, sessions *mockSessionRepo) *Service {
	return NewService(admins, sessions, ServiceConfig{SessionMaxAge: 3600, BcryptCost: bcrypt.MinCost}, nil)
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("Code = %q, want %q", apiErr.Code, code)
	}
}

// --- テスト ---

func TestLogin_ValidCredentials_CreatesSession(t *testing.T) {
	stored := &model.Admin{ID: "admin-1", Username: "root", PasswordHash: hashPassword(t, "s3cret!")}
	var saved *model.Session
	admins := &mockAdminRepo{
		findByLoginFn: func(ctx context.Context, login string) (*model.Admin, error) {
			if login == "root" {
				return stored, nil
			}
			return nil, nil
		},
	}
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, s *model.Session) error {
			saved = s
			return nil
		},
	}
	svc := newTestService(admins, sessions)

	before := time.Now()
	session, admin, err := svc.Login(context.Background(), " root ", "s3cret!")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if admin.ID != "admin-1" {
		t.Errorf("admin.ID = %q", admin.ID)
	}
	if saved != session {
		t.Error("保存されたセッションが返されていない")
	}
	if len(session.ID) != 64 {
		t.Errorf("session ID length = %d, want 64", len(session.ID))
	}
	if session.AdminID != "admin-1" {
		t.Errorf("AdminID = %q", session.AdminID)
	}
	if session.ExpiresAt.Before(before.Add(59 * time.Minute)) {
		t.Errorf("ExpiresAt = %v", session.ExpiresAt)
	}
}

func TestLogin_WrongPasswordOrUnknownAdmin_ReturnsInvalidCredentials(t *testing.T) {
	stored := &model.Admin{ID: "admin-1", Username: "root", PasswordHash: hashPassword(t, "s3cret!")}
	created := 0
	admins := &mockAdminRepo{
		findByLoginFn: func(ctx context.Context, login string) (*model.Admin, error) {
			if login == "root" {
				return stored, nil
			}
			return nil, nil
		},
	}
	sessions := &mockSessionRepo{
		createFn: func(ctx context.Context, s *model.Session) error {
			created++
			return nil
		},
	}
	svc := newTestService(admins, sessions)

	cases := []struct{ login, password string }{
		{"root", "wrong"},
		{"nobody", "s3cret!"},
		{"", "s3cret!"},
		{"root", ""},
	}
	for _, c := range cases {
		_, _, err := svc.Login(context.Background(), c.login, c.password)
		assertAPIErrorCode(t, err, model.ErrCodeInvalidCredentials)
	}
	if created != 0 {
		t.Errorf("失敗時にセッションが作成された: %d", created)
	}
}

func TestLogin_RepoError_ReturnsWrappedError(t *testing.T) {
	boom := errors.New("db down")
	admins := &mockAdminRepo{
		findByLoginFn: func(ctx context.Context, login string) (*model.Admin, error) { return nil, boom },
	}
	svc := newTestService(admins, &mockSessionRepo{})

	_, _, err := svc.Login(context.Background(), "root", "pw")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestLogout_DeletesSession(t *testing.T) {
	var deleted string
	sessions := &mockSessionRepo{
		deleteByIDFn: func(ctx context.Context, id string) error {
			deleted = id
			return nil
		},
	}
	svc := newTestService(&mockAdminRepo{}, sessions)

	if err := svc.Logout(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if deleted != "sess-1" {
		t.Errorf("deleted = %q", deleted)
	}

	err := svc.Logout(context.Background(), "")
	assertAPIErrorCode(t, err, model.ErrCodeUnauthorized)
}

func TestLogoutAll_DeletesEverySessionOfAdmin(t *testing.T) {
	var deletedFor string
	sessions := &mockSessionRepo{
		deleteByAdminIDFn: func(ctx context.Context, adminID string) error {
			deletedFor = adminID
			return nil
		},
	}
	svc := newTestService(&mockAdminRepo{}, sessions)

	if err := svc.LogoutAll(context.Background(), "admin-1"); err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if deletedFor != "admin-1" {
		t.Errorf("deleted for = %q, want admin-1", deletedFor)
	}

	err := svc.LogoutAll(context.Background(), "")
	assertAPIErrorCode(t, err, model.ErrCodeUnauthorized)
}

func TestLogoutAll_WrapsRepositoryError(t *testing.T) {
	boom := errors.New("db down")
	sessions := &mockSessionRepo{
		deleteByAdminIDFn: func(ctx context.Context, adminID string) error { return boom },
	}
	svc := newTestService(&mockAdminRepo{}, sessions)

	if err := svc.LogoutAll(context.Background(), "admin-1"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestCurrentAdmin(t *testing.T) {
	admins := &mockAdminRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Admin, error) {
			if id == "admin-1" {
				return &model.Admin{ID: id, Username: "root"}, nil
			}
			return nil, nil
		},
	}
	svc := newTestService(admins, &mockSessionRepo{})

	a, err := svc.CurrentAdmin(context.Background(), "admin-1")
	if err != nil || a.Username != "root" {
		t.Fatalf("CurrentAdmin = %+v, %v", a, err)
	}

	_, err = svc.CurrentAdmin(context.Background(), "deleted-admin")
	assertAPIErrorCode(t, err, model.ErrCodeUnauthorized)
}

func TestBootstrap_CreatesOnlyWhenEmpty(t *testing.T) {
	var created *model.Admin
	admins := &mockAdminRepo{
		createFn: func(ctx context.Context, a *model.Admin) error {
			created = a
			return nil
		},
	}
	svc := newTestService(admins, &mockSessionRepo{})
	in := BootstrapInput{Username: "root", Email: "root@bpsclub.example", Password: "change-me"}

	ok, err := svc.Bootstrap(context.Background(), in)
	if err != nil || !ok {
		t.Fatalf("Bootstrap = %v, %v", ok, err)
	}
	if created == nil || created.PasswordHash == "change-me" {
		t.Fatalf("created = %+v", created)
	}
	if bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("change-me")) != nil {
		t.Error("保存されたハッシュがパスワードと一致しない")
	}

	admins.count = 1
	created = nil
	ok, err = svc.Bootstrap(context.Background(), in)
	if err != nil || ok || created != nil {
		t.Errorf("既に管理者がいる場合は作成しない: ok=%v err=%v", ok, err)
	}

	admins.count = 0
	ok, _ = svc.Bootstrap(context.Background(), BootstrapInput{})
	if ok {
		t.Error("認証情報が空の場合は作成しない")
	}
}

func TestBootstrap_DuplicateIsIgnored(t *testing.T) {
	admins := &mockAdminRepo{
		createFn: func(ctx context.Context, a *model.Admin) error {
			return errors.Join(repository.ErrDuplicate)
		},
	}
	svc := newTestService(admins, &mockSessionRepo{})

	ok, err := svc.Bootstrap(context.Background(), BootstrapInput{Username: "root", Password: "pw"})
	if err != nil || ok {
		t.Errorf("Bootstrap = %v, %v", ok, err)
	}
}
