package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AnhPhix3405/bpsclub-web/internal/blog"
	"github.com/AnhPhix3405/bpsclub-web/internal/contact"
	"github.com/AnhPhix3405/bpsclub-web/internal/event"
	"github.com/AnhPhix3405/bpsclub-web/internal/middleware"
	"github.com/AnhPhix3405/bpsclub-web/internal/model"
)

// --- モック定義 ---

type mockEventService struct {
	listFn           func(ctx context.Context, p event.ListParams) ([]*model.Event, error)
	getFn            func(ctx context.Context, ref string) (*model.Event, error)
	getForAdminFn    func(ctx context.Context, ref string) (*model.Event, error)
	incrementFn      func(ctx context.Context, ref string, counter model.Counter) error
	listCategoriesFn func(ctx context.Context) ([]model.Category, error)
	getCategoryFn    func(ctx context.Context, id int64) (*model.Category, error)
	createFn         func(ctx context.Context, in event.Input) (*model.Event, error)
	updateFn         func(ctx context.Context, ref string, in event.Input) (*model.Event, error)
	deleteFn         func(ctx context.Context, ref string) error
	createCategoryFn func(ctx context.Context, in event.CategoryInput) (*model.Category, error)
	deleteCategoryFn func(ctx context.Context, id int64) error
}

func (m *mockEventService) List(ctx context.Context, p event.ListParams) ([]*model.Event, error) {
	if m.listFn != nil {
		return m.listFn(ctx, p)
	}
	return nil, nil
}

func (m *mockEventService) Get(ctx context.Context, ref string) (*model.Event, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ref)
	}
	return nil, model.NewEventNotFoundError(ref)
}

func (m *mockEventService) GetForAdmin(ctx context.Context, ref string) (*model.Event, error) {
	if m.getForAdminFn != nil {
		return m.getForAdminFn(ctx, ref)
	}
	return nil, model.NewEventNotFoundError(ref)
}

func (m *mockEventService) Increment(ctx context.Context, ref string, counter model.Counter) error {
	if m.incrementFn != nil {
		return m.incrementFn(ctx, ref, counter)
	}
	return nil
}

func (m *mockEventService) ListCategories(ctx context.Context) ([]model.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return nil, nil
}

func (m *mockEventService) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	if m.getCategoryFn != nil {
		return m.getCategoryFn(ctx, id)
	}
	return nil, model.NewCategoryNotFoundError(id)
}

func (m *mockEventService) Create(ctx context.Context, in event.Input) (*model.Event, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return nil, nil
}

func (m *mockEventService) Update(ctx context.Context, ref string, in event.Input) (*model.Event, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, ref, in)
	}
	return nil, nil
}

func (m *mockEventService) Delete(ctx context.Context, ref string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ref)
	}
	return nil
}

func (m *mockEventService) CreateCategory(ctx context.Context, in event.CategoryInput) (*model.Category, error) {
	if m.createCategoryFn != nil {
		return m.createCategoryFn(ctx, in)
	}
	return nil, nil
}

func (m *mockEventService) DeleteCategory(ctx context.Context, id int64) error {
	if m.deleteCategoryFn != nil {
		return m.deleteCategoryFn(ctx, id)
	}
	return nil
}

type mockBlogService struct {
	listFn           func(ctx context.Context, p blog.ListParams) ([]*model.Blog, error)
	listPublishedFn  func(ctx context.Context, p blog.ListParams) ([]*model.Blog, error)
	getBySlugFn      func(ctx context.Context, slugRef string) (*model.Blog, error)
	getForAdminFn    func(ctx context.Context, ref string) (*model.Blog, error)
	incrementViewsFn func(ctx context.Context, ref string) error
	listCategoriesFn func(ctx context.Context) ([]model.Category, error)
	listTagsFn       func(ctx context.Context) ([]model.Tag, error)
	createFn         func(ctx context.Context, in blog.Input) (*model.Blog, error)
	updateFn         func(ctx context.Context, ref string, in blog.Input) (*model.Blog, error)
	publishFn        func(ctx context.Context, ref string) (*model.Blog, error)
	deleteFn         func(ctx context.Context, ref string) error
	rssFn            func(ctx context.Context) ([]byte, error)
}

func (m *mockBlogService) List(ctx context.Context, p blog.ListParams) ([]*model.Blog, error) {
	if m.listFn != nil {
		return m.listFn(ctx, p)
	}
	return nil, nil
}

func (m *mockBlogService) ListPublished(ctx context.Context, p blog.ListParams) ([]*model.Blog, error) {
	if m.listPublishedFn != nil {
		return m.listPublishedFn(ctx, p)
	}
	return nil, nil
}

func (m *mockBlogService) GetBySlug(ctx context.Context, slugRef string) (*model.Blog, error) {
	if m.getBySlugFn != nil {
		return m.getBySlugFn(ctx, slugRef)
	}
	return nil, model.NewBlogNotFoundError(slugRef)
}

func (m *mockBlogService) GetForAdmin(ctx context.Context, ref string) (*model.Blog, error) {
	if m.getForAdminFn != nil {
		return m.getForAdminFn(ctx, ref)
	}
	return nil, model.NewBlogNotFoundError(ref)
}

func (m *mockBlogService) IncrementViews(ctx context.Context, ref string) error {
	if m.incrementViewsFn != nil {
		return m.incrementViewsFn(ctx, ref)
	}
	return nil
}

func (m *mockBlogService) ListCategories(ctx context.Context) ([]model.Category, error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(ctx)
	}
	return nil, nil
}

func (m *mockBlogService) ListTags(ctx context.Context) ([]model.Tag, error) {
	if m.listTagsFn != nil {
		return m.listTagsFn(ctx)
	}
	return nil, nil
}

func (m *mockBlogService) Create(ctx context.Context, in blog.Input) (*model.Blog, error) {
	if m.createFn != nil {
		return m.createFn(ctx, in)
	}
	return nil, nil
}

func (m *mockBlogService) Update(ctx context.Context, ref string, in blog.Input) (*model.Blog, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, ref, in)
	}
	return nil, nil
}

func (m *mockBlogService) Publish(ctx context.Context, ref string) (*model.Blog, error) {
	if m.publishFn != nil {
		return m.publishFn(ctx, ref)
	}
	return nil, nil
}

func (m *mockBlogService) Delete(ctx context.Context, ref string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ref)
	}
	return nil
}

func (m *mockBlogService) RSS(ctx context.Context) ([]byte, error) {
	if m.rssFn != nil {
		return m.rssFn(ctx)
	}
	return nil, nil
}

type mockContactService struct {
	submitContactFn      func(ctx context.Context, form contact.ContactForm) (*model.ContactMessage, error)
	submitRegistrationFn func(ctx context.Context, form contact.RegistrationForm) (*model.Registration, error)
	listAreasFn          func(ctx context.Context) ([]model.Area, error)
	listContactsFn       func(ctx context.Context, limit int) ([]*model.ContactMessage, error)
	listRegistrationsFn  func(ctx context.Context, limit int) ([]*model.Registration, error)
}

func (m *mockContactService) SubmitContact(ctx context.Context, form contact.ContactForm) (*model.ContactMessage, error) {
	if m.submitContactFn != nil {
		return m.submitContactFn(ctx, form)
	}
	return nil, nil
}

func (m *mockContactService) SubmitRegistration(ctx context.Context, form contact.RegistrationForm) (*model.Registration, error) {
	if m.submitRegistrationFn != nil {
		return m.submitRegistrationFn(ctx, form)
	}
	return nil, nil
}

func (m *mockContactService) ListAreas(ctx context.Context) ([]model.Area, error) {
	if m.listAreasFn != nil {
		return m.listAreasFn(ctx)
	}
	return nil, nil
}

func (m *mockContactService) ListContacts(ctx context.Context, limit int) ([]*model.ContactMessage, error) {
	if m.listContactsFn != nil {
		return m.listContactsFn(ctx, limit)
	}
	return nil, nil
}

func (m *mockContactService) ListRegistrations(ctx context.Context, limit int) ([]*model.Registration, error) {
	if m.listRegistrationsFn != nil {
		return m.listRegistrationsFn(ctx, limit)
	}
	return nil, nil
}

type mockAuthService struct {
	loginFn        func(ctx context.Context, identifier, password string) (*model.Session, *model.Admin, error)
	logoutFn       func(ctx context.Context, sessionID string) error
	logoutAllFn    func(ctx context.Context, adminID string) error
	currentAdminFn func(ctx context.Context, adminID string) (*model.Admin, error)
}

func (m *mockAuthService) Login(ctx context.Context, identifier, password string) (*model.Session, *model.Admin, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, identifier, password)
	}
	return nil, nil, model.NewInvalidCredentialsError()
}

func (m *mockAuthService) Logout(ctx context.Context, sessionID string) error {
	if m.logoutFn != nil {
		return m.logoutFn(ctx, sessionID)
	}
	return nil
}

func (m *mockAuthService) LogoutAll(ctx context.Context, adminID string) error {
	if m.logoutAllFn != nil {
		return m.logoutAllFn(ctx, adminID)
	}
	return nil
}

func (m *mockAuthService) CurrentAdmin(ctx context.Context, adminID string) (*model.Admin, error) {
	if m.currentAdminFn != nil {
		return m.currentAdminFn(ctx, adminID)
	}
	return nil, model.NewUnauthorizedError()
}

// mockSessionFinder は "valid-session" のみを有効なセッションとして扱う。
type mockSessionFinder struct{}

func (mockSessionFinder) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if id != testSessionID {
		return nil, nil
	}
	return &model.Session{ID: id, AdminID: testAdminID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// --- ヘルパー ---

const (
	testSessionID = "valid-session"
	testAdminID   = "admin-1"
	testCSRFToken = "csrf-token-for-test"
)

type testDeps struct {
	events   *mockEventService
	blogs    *mockBlogService
	contacts *mockContactService
	auth     *mockAuthService
}

func newTestDeps() *testDeps {
	return &testDeps{
		events:   &mockEventService{},
		blogs:    &mockBlogService{},
		contacts: &mockContactService{},
		auth:     &mockAuthService{},
	}
}

// newTestRouter はレート制限を実質無効にしたルーターを返す。
func newTestRouter(t *testing.T, d *testDeps) http.Handler {
	t.Helper()
	return newTestRouterWithLimits(t, d, middleware.RateLimiterConfig{
		GeneralRate: 1000, GeneralBurst: 1000,
		FormRate: 1000, FormBurst: 1000,
		CleanupInterval: time.Minute,
	})
}

func newTestRouterWithLimits(t *testing.T, d *testDeps, limits middleware.RateLimiterConfig) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	rl := middleware.NewRateLimiter(limits, logger)
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		Logger:             logger,
		SessionFinder:      mockSessionFinder{},
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		RateLimiter:        rl,
		AuthService:        d.auth,
		AuthConfig:         AuthHandlerConfig{SessionMaxAge: 3600},
		EventService:       d.events,
		BlogService:        d.blogs,
		ContactService:     d.contacts,
	})
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// withCSRF はダブルサブミットCookieとヘッダーを付与する。
func withCSRF(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: "csrf_token", Value: testCSRFToken})
	req.Header.Set(middleware.CSRFHeaderName, testCSRFToken)
	return req
}

// withSession は有効なセッションCookieを付与する。
func withSession(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookieName, Value: testSessionID})
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(dst); err != nil {
		t.Fatalf("failed to decode response: %v\nbody: %s", err, w.Body.String())
	}
}

func assertErrorCode(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantCode string) {
	t.Helper()
	if w.Code != wantStatus {
		t.Errorf("status = %d, want %d (body: %s)", w.Code, wantStatus, w.Body.String())
	}
	var body middleware.ErrorResponseBody
	decodeBody(t, w, &body)
	if body.Code != wantCode {
		t.Errorf("code = %q, want %q", body.Code, wantCode)
	}
}
