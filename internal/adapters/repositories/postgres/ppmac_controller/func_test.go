package ppmac_controller

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/iwtcode/ppmacAdapter/internal/domain/entities"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockRepo(t *testing.T) (*PpmacControllerRepositoryImpl, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm open: %v", err)
	}
	return NewPpmacControllerRepository(gdb).(*PpmacControllerRepositoryImpl), mock
}

func TestCreate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "ppmac_controllers"`)).
		WithArgs("sid-1", "10.0.0.5:1025", sqlmock.AnyArg(), sqlmock.AnyArg(), entities.StatusConnected).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Create(&entities.PpmacController{
		SessionID:   "sid-1",
		EndpointURL: "10.0.0.5:1025",
		Status:      entities.StatusConnected,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByEndpoint(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"session_id", "endpoint_url", "created_at", "updated_at", "status"}).
		AddRow("sid-1", "10.0.0.5:1025", now, now, entities.StatusScanning)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "ppmac_controllers" WHERE endpoint_url = $1`)).
		WillReturnRows(rows)

	got, err := repo.GetByEndpoint("10.0.0.5:1025")
	if err != nil {
		t.Fatalf("get by endpoint: %v", err)
	}
	if got.SessionID != "sid-1" || got.Status != entities.StatusScanning {
		t.Fatalf("unexpected controller %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetBySessionIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "ppmac_controllers" WHERE session_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"session_id"}))

	_, err := repo.GetBySessionID("missing")
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
}

func TestUpdateStatus(t *testing.T) {
	repo, mock := newMockRepo(t)

	query := regexp.QuoteMeta(`UPDATE "ppmac_controllers" SET "status"=$1,"updated_at"=$2 WHERE session_id = $3`)
	mock.ExpectExec(query).
		WithArgs(entities.StatusScanning, sqlmock.AnyArg(), "sid-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).
		WithArgs(entities.StatusConnected, sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.UpdateStatus("sid-1", entities.StatusScanning); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := repo.UpdateStatus("missing", entities.StatusConnected); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	query := regexp.QuoteMeta(`DELETE FROM "ppmac_controllers" WHERE session_id = $1`)
	mock.ExpectExec(query).WithArgs("sid-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(query).WithArgs("sid-1").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete("sid-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.Delete("sid-1"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected record not found on second delete, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetAll(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"session_id", "endpoint_url", "created_at", "updated_at", "status"}).
		AddRow("sid-1", "10.0.0.5:1025", now, now, entities.StatusConnected).
		AddRow("sid-2", "10.0.0.6:1025", now, now, entities.StatusScanning)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "ppmac_controllers"`)).WillReturnRows(rows)

	got, err := repo.GetAll()
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 controllers, got %d", len(got))
	}
}
