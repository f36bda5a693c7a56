package api

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mailbeacon/internal/auth"
	"mailbeacon/internal/models"
)

type stubSender struct {
	calls int
	fail  bool
}

func (s *stubSender) Send(_ context.Context, _, _, _ string) error {
	s.calls++
	if s.fail {
		return errors.New("smtp unavailable")
	}
	return nil
}

func newMockAPI(t *testing.T, mail *stubSender, cfg Config) (*API, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	orm, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open() error: %v", err)
	}

	tokens, err := auth.NewJWTManager("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewJWTManager() error: %v", err)
	}
	a, err := New(&Store{ORM: orm}, tokens, mail, nil, cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return a, mock
}

func TestRegisterFailedSendWritesNothing(t *testing.T) {
	mail := &stubSender{fail: true}
	a, mock := newMockAPI(t, mail, Config{})

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r := httptest.NewRequest("POST", "/auth/register",
		strings.NewReader(`{"email":"owner@example.com","password":"hunter22"}`))
	w := httptest.NewRecorder()
	a.handleRegister(w, r)

	if w.Code != 500 {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if mail.calls != 1 {
		t.Fatalf("sender called %d times, want 1 before any write", mail.calls)
	}
	// No insert was expected: a row written before the failed send would
	// lock the address out of ever registering again.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("storage expectations: %v", err)
	}
}

func TestRegisterPendingRefreshesCode(t *testing.T) {
	mail := &stubSender{}
	a, mock := newMockAPI(t, mail, Config{})

	staleCode := "111111"
	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "state", "otp", "otp_expires_at"}).
		AddRow(uuid.NewString(), "owner@example.com", "stale-hash", models.UserStatePending, staleCode, time.Now().Add(-time.Hour))
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(rows)
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	r := httptest.NewRequest("POST", "/auth/register",
		strings.NewReader(`{"email":"owner@example.com","password":"hunter22"}`))
	w := httptest.NewRecorder()
	a.handleRegister(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	if mail.calls != 1 {
		t.Fatalf("sender called %d times, want 1", mail.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("storage expectations: %v", err)
	}
}

func TestRegisterActiveEmailRejected(t *testing.T) {
	mail := &stubSender{}
	a, mock := newMockAPI(t, mail, Config{})

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "state"}).
		AddRow(uuid.NewString(), "owner@example.com", "hash", models.UserStateActive)
	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnRows(rows)

	r := httptest.NewRequest("POST", "/auth/register",
		strings.NewReader(`{"email":"owner@example.com","password":"hunter22"}`))
	w := httptest.NewRecorder()
	a.handleRegister(w, r)

	if w.Code != 400 {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if mail.calls != 0 {
		t.Fatalf("sender called %d times, want 0", mail.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("storage expectations: %v", err)
	}
}

func TestRegisterCreatesPendingUser(t *testing.T) {
	mail := &stubSender{}
	a, mock := newMockAPI(t, mail, Config{})

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectCommit()

	r := httptest.NewRequest("POST", "/auth/register",
		strings.NewReader(`{"email":"owner@example.com","password":"hunter22"}`))
	w := httptest.NewRecorder()
	a.handleRegister(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	if mail.calls != 1 {
		t.Fatalf("sender called %d times, want 1", mail.calls)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("storage expectations: %v", err)
	}
}

func TestRecordViewAttributionPolicy(t *testing.T) {
	const creatorIP = "203.0.113.5"

	tests := []struct {
		name              string
		trackCreatorViews bool
		viewerIP          string
		wantCounted       bool
	}{
		{name: "creator suppressed by default", trackCreatorViews: false, viewerIP: creatorIP, wantCounted: false},
		{name: "stranger counted", trackCreatorViews: false, viewerIP: "198.51.100.9", wantCounted: true},
		{name: "creator counted when enabled", trackCreatorViews: true, viewerIP: creatorIP, wantCounted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, mock := newMockAPI(t, &stubSender{}, Config{TrackCreatorViews: tt.trackCreatorViews})
			pixel := &models.Pixel{ID: uuid.New(), CreatorIP: creatorIP}

			// A suppressed view must never reach storage, so only the
			// counted cases expect a transaction.
			if tt.wantCounted {
				mock.ExpectBegin()
				mock.ExpectExec(`UPDATE "pixels" SET "view_count"=`).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`INSERT INTO "views"`).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
				mock.ExpectCommit()
			}

			counted, err := a.recordView(context.Background(), pixel, tt.viewerIP, "test-agent")
			if err != nil {
				t.Fatalf("recordView() error: %v", err)
			}
			if counted != tt.wantCounted {
				t.Fatalf("counted = %v, want %v", counted, tt.wantCounted)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("storage expectations: %v", err)
			}
		})
	}
}

func TestListCategoriesCountsInOneQuery(t *testing.T) {
	a, mock := newMockAPI(t, &stubSender{}, Config{})

	uid := uuid.New()
	withPixels := uuid.New()
	empty := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "categories"`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "user_id"}).
			AddRow(withPixels.String(), "newsletters", uid.String()).
			AddRow(empty.String(), "invoices", uid.String()))
	mock.ExpectQuery(`SELECT category_id, count\(\*\) AS count FROM "pixels"`).WillReturnRows(
		sqlmock.NewRows([]string{"category_id", "count"}).
			AddRow(withPixels.String(), 3))

	r := httptest.NewRequest("GET", "/categories/", nil)
	r = r.WithContext(context.WithValue(r.Context(), userIDKey, uid))
	w := httptest.NewRecorder()
	a.handleListCategories(w, r)

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200; body %s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, `"pixelCount":3`) {
		t.Fatalf("body missing grouped count, got %s", body)
	}
	if !strings.Contains(body, `"pixelCount":0`) {
		t.Fatalf("body missing zero count for empty category, got %s", body)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("storage expectations: %v", err)
	}
}
