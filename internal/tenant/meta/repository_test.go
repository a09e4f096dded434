// internal/tenant/meta/repository_test.go
//
// Unit-tests for tenant-row helpers using sqlmock.

package meta

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var tenantCols = []string{
	"id", "slug", "name", "db_name", "db_host", "db_port", "db_username",
	"db_password", "locale", "timezone", "date_format", "status",
	"suspended_reason", "provisioning_status", "trial_ends_at",
	"plan.id", "plan.slug", "plan.name",
}

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func TestBySlug(t *testing.T) {
	db, mock := newMock(t)
	ends := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM tenant t LEFT JOIN plan p ON p.id = t.plan_id WHERE t.slug = \?`).
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows(tenantCols).AddRow(
			7, "acme", "Acme", "tenant_acme", nil, nil, nil, nil,
			"en", "UTC", "2006-01-02", "trial", nil, "ready", ends,
			3, "starter", "Starter",
		))

	rec, err := BySlug(context.Background(), db, "acme")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), rec.ID)
	assert.Equal(t, StatusTrial, rec.Status)
	assert.True(t, rec.IsReady())
	require.NotNil(t, rec.Plan.Slug)
	assert.Equal(t, "starter", *rec.Plan.Slug)
	assert.Equal(t, &ends, rec.TrialEnd())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBySlug_NotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT (.+) FROM tenant t`).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(tenantCols))

	_, err := BySlug(context.Background(), db, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestByID_ReturnsCancelledRows(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT (.+) FROM tenant t (.+) WHERE t.id = \?`).
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(tenantCols).AddRow(
			9, "gone", "Gone", "tenant_gone", nil, nil, nil, nil,
			"en", "UTC", "2006-01-02", "cancelled", nil, "ready", nil,
			nil, nil, nil,
		))

	rec, err := ByID(context.Background(), db, 9)
	require.NoError(t, err)
	assert.True(t, rec.IsCancelled())
	assert.Nil(t, rec.Plan.ID)
}

func TestCountServing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM tenant`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := CountServing(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestSettings(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`SELECT name, value FROM setting`).
		WillReturnRows(sqlmock.NewRows([]string{"name", "value"}).
			AddRow("brand_color", "#003366").
			AddRow("support_email", "help@acme.test"))

	got, err := Settings(context.Background(), db)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"brand_color":   "#003366",
		"support_email": "help@acme.test",
	}, got)
}

func TestRecordAccessors(t *testing.T) {
	reason := "payment failed"
	ends := time.Date(2026, 10, 20, 12, 0, 0, 0, time.UTC)

	r := Record{Status: StatusSuspended, SuspendedReason: &reason, TrialEndsAt: &ends}
	assert.Equal(t, "payment failed", r.Reason())
	assert.Nil(t, r.TrialEnd(), "trial end only applies to trial status")

	r = Record{Status: StatusTrial, SuspendedReason: &reason, TrialEndsAt: &ends}
	assert.Equal(t, "", r.Reason(), "reason only applies to suspended status")

	now := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	days, ok := r.TrialDaysRemaining(now)
	assert.True(t, ok)
	assert.Equal(t, 6, days)

	days, ok = r.TrialDaysRemaining(ends.Add(time.Hour))
	assert.True(t, ok)
	assert.Equal(t, 0, days)
}
