package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/agenda/internal/common"
	"github.com/dmitrijs2005/agenda/internal/dbx"
	"github.com/dmitrijs2005/agenda/internal/logging"
	"github.com/dmitrijs2005/agenda/internal/server/auth"
	"github.com/dmitrijs2005/agenda/internal/server/config"
	"github.com/dmitrijs2005/agenda/internal/server/models"
	eventsrepo "github.com/dmitrijs2005/agenda/internal/server/repositories/events"
	usersrepo "github.com/dmitrijs2005/agenda/internal/server/repositories/users"
	"github.com/dmitrijs2005/agenda/internal/server/services"
)

// --- fakes ---

type fakeUsersRepo struct {
	usersrepo.Repository

	byID    *models.User
	byIDErr error

	byEmail    *models.User
	byEmailErr error

	exists    bool
	existsErr error

	deleteErr error
}

func (f *fakeUsersRepo) Create(ctx context.Context, u *models.User) (*models.User, error) {
	u.ID = "u1"
	return u, nil
}

func (f *fakeUsersRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byID, nil
}

func (f *fakeUsersRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if f.byEmailErr != nil {
		return nil, f.byEmailErr
	}
	return f.byEmail, nil
}

func (f *fakeUsersRepo) ExistsWithIdentity(ctx context.Context, email, username, excludeID string) (bool, error) {
	return f.exists, f.existsErr
}

func (f *fakeUsersRepo) Update(ctx context.Context, u *models.User) error { return nil }

func (f *fakeUsersRepo) Delete(ctx context.Context, id string) error { return f.deleteErr }

type fakeEventsRepo struct {
	eventsrepo.Repository

	byID    *models.Event
	byIDErr error

	selectOut []*models.Event
	selectErr error

	toggleOut *models.Event
	toggleErr error
}

func (f *fakeEventsRepo) Create(ctx context.Context, e *models.Event) (*models.Event, error) {
	e.ID = "e1"
	return e, nil
}

func (f *fakeEventsRepo) GetByID(ctx context.Context, id, userID string) (*models.Event, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	return f.byID, nil
}

func (f *fakeEventsRepo) SelectByUser(ctx context.Context, userID string, from, to *time.Time) ([]*models.Event, error) {
	if f.selectErr != nil {
		return nil, f.selectErr
	}
	if f.selectOut == nil {
		return []*models.Event{}, nil
	}
	return f.selectOut, nil
}

func (f *fakeEventsRepo) ToggleCompletion(ctx context.Context, id, userID string) (*models.Event, error) {
	if f.toggleErr != nil {
		return nil, f.toggleErr
	}
	return f.toggleOut, nil
}

type fakeRepoManager struct {
	u *fakeUsersRepo
	e *fakeEventsRepo
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) usersrepo.Repository      { return m.u }
func (m *fakeRepoManager) Events(db dbx.DBTX) eventsrepo.Repository    { return m.e }

// --- helpers ---

type testServer struct {
	srv  *Server
	mock sqlmock.Sqlmock
	ur   *fakeUsersRepo
	er   *fakeEventsRepo
	cfg  *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		EndpointAddrHTTP:      ":0",
		SecretKey:             "test-secret",
		TokenValidityDuration: time.Hour,
		BcryptCost:            bcrypt.MinCost,
	}

	ur := &fakeUsersRepo{}
	er := &fakeEventsRepo{}
	rm := &fakeRepoManager{u: ur, e: er}

	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))

	srv := NewServer(cfg, logger,
		services.NewUserService(db, rm, cfg),
		services.NewEventService(db, rm))

	return &testServer{srv: srv, mock: mock, ur: ur, er: er, cfg: cfg}
}

func (ts *testServer) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateToken(userID, "a@b.co", []byte(ts.cfg.SecretKey), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set(common.AuthorizationHeader, common.BearerPrefix+token)
	}
	rec := httptest.NewRecorder()
	ts.srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
	}
	return m
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := auth.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}
	return h
}

// --- auth middleware ---

func TestAuth_MissingToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/profile", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: want 401, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["error"] != "access token required" || body["success"] != false {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/profile", "garbage", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: want 403, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "invalid token" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAuth_ExpiredToken(t *testing.T) {
	ts := newTestServer(t)

	expired, err := auth.GenerateToken("u1", "a@b.co", []byte(ts.cfg.SecretKey), -time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	rec := ts.do(t, http.MethodGet, "/api/profile", expired, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status: want 403, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "token expired" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

// --- registration and login ---

func TestRegister_Created(t *testing.T) {
	ts := newTestServer(t)
	ts.mock.ExpectBegin()
	ts.mock.ExpectCommit()

	rec := ts.do(t, http.MethodPost, "/api/register", "",
		`{"email":"a@b.co","username":"alice","password":"secret1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: want 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["token"] == "" || body["token"] == nil {
		t.Fatalf("unexpected body: %v", body)
	}
	user, ok := body["user"].(map[string]any)
	if !ok || user["email"] != "a@b.co" {
		t.Fatalf("unexpected user payload: %v", body["user"])
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatalf("password hash leaked: %v", user)
	}
}

func TestRegister_Duplicate(t *testing.T) {
	ts := newTestServer(t)
	ts.mock.ExpectBegin()
	ts.mock.ExpectRollback()
	ts.ur.exists = true

	rec := ts.do(t, http.MethodPost, "/api/register", "",
		`{"email":"a@b.co","password":"secret1"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status: want 409, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "email or username already in use" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestRegister_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/register", "",
		`{"email":"nonsense","password":"secret1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400, got %d", rec.Code)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.ur.byEmailErr = common.ErrorNotFound

	rec := ts.do(t, http.MethodPost, "/api/login", "",
		`{"email":"ghost@b.co","password":"secret1"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: want 401, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "invalid credentials" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestLogin_Success(t *testing.T) {
	ts := newTestServer(t)
	ts.ur.byEmail = &models.User{ID: "u1", Email: "a@b.co", PasswordHash: mustHash(t, "secret1")}

	rec := ts.do(t, http.MethodPost, "/api/login", "",
		`{"email":"a@b.co","password":"secret1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true || body["token"] == nil {
		t.Fatalf("unexpected body: %v", body)
	}
}

// --- verify-token ---

func TestVerifyToken(t *testing.T) {
	ts := newTestServer(t)
	ts.ur.byID = &models.User{ID: "u1", Email: "a@b.co"}

	rec := ts.do(t, http.MethodPost, "/api/verify-token", "", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing token: want 400, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/verify-token", "", `{"token":"garbage"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("invalid token: want 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["valid"] != false {
		t.Fatalf("invalid token: want valid=false, got %s", rec.Body.String())
	}

	rec = ts.do(t, http.MethodPost, "/api/verify-token", "",
		`{"token":"`+ts.token(t, "u1")+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid token: want 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["valid"] != true || body["success"] != true {
		t.Fatalf("valid token: unexpected body %v", body)
	}
}

// --- profile ---

func TestGetProfile(t *testing.T) {
	ts := newTestServer(t)
	ts.ur.byID = &models.User{ID: "u1", Email: "a@b.co", Username: "alice"}

	rec := ts.do(t, http.MethodGet, "/api/profile", ts.token(t, "u1"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
	user := decodeBody(t, rec)["user"].(map[string]any)
	if user["username"] != "alice" {
		t.Fatalf("unexpected user: %v", user)
	}
}

func TestDeleteAccount_NotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.ur.deleteErr = common.ErrorNotFound

	rec := ts.do(t, http.MethodDelete, "/api/profile", ts.token(t, "ghost"), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want 404, got %d", rec.Code)
	}
}

func TestChangePassword_Weak(t *testing.T) {
	ts := newTestServer(t)
	ts.ur.byID = &models.User{ID: "u1", PasswordHash: mustHash(t, "current1")}

	rec := ts.do(t, http.MethodPost, "/api/profile/password", ts.token(t, "u1"),
		`{"currentPassword":"current1","newPassword":"short"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: want 400, got %d (%s)", rec.Code, rec.Body.String())
	}
}

// --- events ---

func TestCreateEvent(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/events", ts.token(t, "u1"),
		`{"title":"Dentist","time":"14:30","date":"2025-06-01"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status: want 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	event := decodeBody(t, rec)["event"].(map[string]any)
	if event["title"] != "Dentist" || event["userId"] != "u1" {
		t.Fatalf("unexpected event: %v", event)
	}
}

func TestCreateEvent_Validation(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/events", ts.token(t, "u1"),
		`{"date":"2025-06-01"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing title: want 400, got %d", rec.Code)
	}

	rec = ts.do(t, http.MethodPost, "/api/events", ts.token(t, "u1"),
		`{"title":"x","date":"junk"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: want 400, got %d", rec.Code)
	}
}

func TestListEvents(t *testing.T) {
	ts := newTestServer(t)
	now := time.Now().UTC()
	ts.er.selectOut = []*models.Event{
		{ID: "e1", UserID: "u1", Title: "First", Date: now},
		{ID: "e2", UserID: "u1", Title: "Second", Date: now.Add(time.Hour)},
	}

	rec := ts.do(t, http.MethodGet, "/api/events?startDate=2025-06-01&endDate=2025-06-30", ts.token(t, "u1"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
	events := decodeBody(t, rec)["events"].([]any)
	if len(events) != 2 {
		t.Fatalf("want 2 events, got %d", len(events))
	}
}

func TestListEvents_Empty(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/events", ts.token(t, "u1"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
	events, ok := decodeBody(t, rec)["events"].([]any)
	if !ok || len(events) != 0 {
		t.Fatalf("want empty array, got %s", rec.Body.String())
	}
}

func TestGetEvent_ForeignOwner(t *testing.T) {
	ts := newTestServer(t)
	ts.er.byIDErr = common.ErrorNotFound

	rec := ts.do(t, http.MethodGet, "/api/events/e1", ts.token(t, "u2"), "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status: want 404, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "not found" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestToggleEvent(t *testing.T) {
	ts := newTestServer(t)
	ts.er.toggleOut = &models.Event{ID: "e1", UserID: "u1", Title: "Dentist", IsCompleted: true}

	rec := ts.do(t, http.MethodPatch, "/api/events/e1/toggle", ts.token(t, "u1"), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
	event := decodeBody(t, rec)["event"].(map[string]any)
	if event["isCompleted"] != true {
		t.Fatalf("unexpected event: %v", event)
	}
}

// --- misc ---

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/api/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want 200, got %d", rec.Code)
	}
	if decodeBody(t, rec)["status"] != "ok" {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestInternalError_ConstantMessage(t *testing.T) {
	ts := newTestServer(t)
	ts.er.selectErr = sql.ErrConnDone

	rec := ts.do(t, http.MethodGet, "/api/events", ts.token(t, "u1"), "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: want 500, got %d", rec.Code)
	}
	if decodeBody(t, rec)["error"] != "internal error" {
		t.Fatalf("raw error leaked: %s", rec.Body.String())
	}
}
