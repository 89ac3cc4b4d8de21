package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/otcheredev/clinic-console/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestAuditRecord(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewAuditRepository(db)

	mock.ExpectExec(`INSERT INTO "audit_logs"`).
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Actor: "admin", Action: "tenant.delete", ResourceType: "tenant", ResourceID: "t1", Status: models.AuditSuccess}
	require.NoError(t, repo.Record(context.Background(), entry))
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", entry.ID.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRunRecordAndRecent(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewImportRunRepository(db)

	mock.ExpectExec(`INSERT INTO "import_runs"`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	require.NoError(t, repo.RecordRun(context.Background(), &models.ImportRun{
		Actor: "dr.ada", FileName: "labs.xlsx", Total: 3, Success: 2, Fail: 1,
	}))

	rows := sqlmock.NewRows([]string{"id", "actor", "file_name", "total", "success", "fail"}).
		AddRow("7d7f4c1a-1f2e-4a55-8d2f-5b0f8a9d2e10", "dr.ada", "labs.xlsx", 3, 2, 1)
	mock.ExpectQuery(`SELECT \* FROM "import_runs" WHERE actor = \$1 ORDER BY started_at DESC`).
		WillReturnRows(rows)

	runs, err := repo.Recent(context.Background(), "dr.ada", 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Success)
	assert.NoError(t, mock.ExpectationsWereMet())
}
