package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	sq "github.com/Masterminds/squirrel"

	"github.com/tallyvault/tallyvault/internal/logger"
	"github.com/tallyvault/tallyvault/models"
)

func newTestEntityRepo(t *testing.T) (*entityRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	l := logger.NewLogger("test")
	wrapped := &DB{DB: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar), logger: l}
	repo := &entityRepository{DB: wrapped, logger: l}
	return repo, mock, db
}

func testEntity() models.Entity {
	return models.Entity{
		ID:             "acc-1",
		CompanyID:      "acme",
		Type:           models.EntityAccount,
		Vector:         models.VersionVector{"laptop": 3},
		LastModifiedBy: "laptop",
		UpdatedAt:      time.Now().Truncate(time.Microsecond),
		Fields: map[string]models.EncryptedField{
			"name": {KeyID: "key-1", Ciphertext: "b64cipher"},
		},
	}
}

func TestSaveEntity_Success(t *testing.T) {
	repo, mock, db := newTestEntityRepo(t)
	defer db.Close()

	entity := testEntity()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO entities").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM entity_fields").
		WithArgs("acme", "acc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO entity_fields").
		WithArgs("acme", "acc-1", "name", "key-1", "b64cipher").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Save(context.Background(), entity); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveEntity_NoFields(t *testing.T) {
	repo, mock, db := newTestEntityRepo(t)
	defer db.Close()

	entity := testEntity()
	entity.Fields = nil

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO entities").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM entity_fields").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.Save(context.Background(), entity); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSaveEntity_UpsertFails_RollsBack(t *testing.T) {
	repo, mock, db := newTestEntityRepo(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO entities").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), testEntity())
	if !errors.Is(err, ErrExecutingStatement) {
		t.Fatalf("expected ErrExecutingStatement, got %v", err)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetEntity_Success(t *testing.T) {
	repo, mock, db := newTestEntityRepo(t)
	defer db.Close()

	now := time.Now()
	entityRows := sqlmock.
		NewRows([]string{"company_id", "id", "type", "vector", "last_modified_by", "deleted", "deleted_at", "updated_at"}).
		AddRow("acme", "acc-1", "account", []byte(`{"laptop":3}`), "laptop", false, nil, now)
	fieldRows := sqlmock.
		NewRows([]string{"entity_id", "name", "key_id", "ciphertext"}).
		AddRow("acc-1", "name", "key-1", "b64cipher").
		AddRow("acc-1", "balance", "key-1", "b64cipher2")

	mock.ExpectQuery("SELECT company_id").
		WithArgs("acme", "acc-1").
		WillReturnRows(entityRows)
	mock.ExpectQuery("SELECT entity_id").
		WillReturnRows(fieldRows)

	entity, err := repo.Get(context.Background(), "acme", "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entity.Vector["laptop"] != 3 {
		t.Errorf("expected vector laptop=3, got %v", entity.Vector)
	}
	if len(entity.Fields) != 2 {
		t.Errorf("expected 2 fields, got %d", len(entity.Fields))
	}
	if entity.Fields["balance"].Ciphertext != "b64cipher2" {
		t.Errorf("unexpected balance field: %+v", entity.Fields["balance"])
	}
}

func TestGetEntity_NotFound(t *testing.T) {
	repo, mock, db := newTestEntityRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT company_id").
		WithArgs("acme", "ghost").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "acme", "ghost")
	if !errors.Is(err, ErrEntityNotFound) {
		t.Fatalf("expected ErrEntityNotFound, got %v", err)
	}
}

func TestGetEntity_Tombstone(t *testing.T) {
	repo, mock, db := newTestEntityRepo(t)
	defer db.Close()

	now := time.Now()
	deletedAt := now.Add(-time.Minute)
	entityRows := sqlmock.
		NewRows([]string{"company_id", "id", "type", "vector", "last_modified_by", "deleted", "deleted_at", "updated_at"}).
		AddRow("acme", "acc-1", "account", []byte(`{"phone":1}`), "phone", true, deletedAt, now)
	fieldRows := sqlmock.NewRows([]string{"entity_id", "name", "key_id", "ciphertext"})

	mock.ExpectQuery("SELECT company_id").
		WillReturnRows(entityRows)
	mock.ExpectQuery("SELECT entity_id").
		WillReturnRows(fieldRows)

	entity, err := repo.Get(context.Background(), "acme", "acc-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !entity.Deleted {
		t.Error("expected tombstone")
	}
	if entity.DeletedAt == nil || !entity.DeletedAt.Equal(deletedAt) {
		t.Errorf("expected deleted_at %v, got %v", deletedAt, entity.DeletedAt)
	}
	if entity.Fields == nil || len(entity.Fields) != 0 {
		t.Errorf("expected empty non-nil field map, got %v", entity.Fields)
	}
}

func TestListByKeyEpoch_LoadsFields(t *testing.T) {
	repo, mock, db := newTestEntityRepo(t)
	defer db.Close()

	now := time.Now()
	entityRows := sqlmock.
		NewRows([]string{"company_id", "id", "type", "vector", "last_modified_by", "deleted", "deleted_at", "updated_at"}).
		AddRow("acme", "acc-1", "account", []byte(`{"laptop":1}`), "laptop", false, nil, now).
		AddRow("acme", "tx-9", "transaction", []byte(`{"laptop":2}`), "laptop", false, nil, now)
	fieldRows := sqlmock.
		NewRows([]string{"entity_id", "name", "key_id", "ciphertext"}).
		AddRow("acc-1", "name", "key-old", "c1").
		AddRow("tx-9", "lines", "key-old", "c2")

	mock.ExpectQuery("SELECT DISTINCT e.company_id").
		WithArgs("acme", "key-old").
		WillReturnRows(entityRows)
	mock.ExpectQuery("SELECT entity_id").
		WillReturnRows(fieldRows)

	entities, err := repo.ListByKeyEpoch(context.Background(), "acme", "key-old", 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entities) != 2 {
		t.Fatalf("expected 2 entities, got %d", len(entities))
	}
	if entities[1].Fields["lines"].KeyID != "key-old" {
		t.Errorf("unexpected field set: %+v", entities[1].Fields)
	}
}

func TestCountByKeyEpoch(t *testing.T) {
	repo, mock, db := newTestEntityRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("acme", "key-old").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := repo.CountByKeyEpoch(context.Background(), "acme", "key-old")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 7 {
		t.Errorf("expected 7, got %d", count)
	}
}
