package database

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func TestMigrateAppliesPendingInOrder(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()
	db := sqlx.NewDb(raw, "mysql")

	fsys := fstest.MapFS{
		"migrations/002_more.sql": {Data: []byte("CREATE TABLE b (id INT)")},
		"migrations/001_init.sql": {Data: []byte("CREATE TABLE a (id INT)")},
		"migrations/003_late.sql": {Data: []byte("CREATE TABLE c (id INT)")},
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT name FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"name"}).AddRow("migrations/001_init.sql"))
	for _, m := range []struct{ name, body string }{
		{"migrations/002_more.sql", "CREATE TABLE b (id INT)"},
		{"migrations/003_late.sql", "CREATE TABLE c (id INT)"},
	} {
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(m.body)).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").WithArgs(m.name).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
	}

	applied, err := migrate(context.Background(), db, fsys)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if len(applied) != 2 || applied[0] != "migrations/002_more.sql" || applied[1] != "migrations/003_late.sql" {
		t.Fatalf("applied = %v", applied)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMigrateRollsBackFailedFile(t *testing.T) {
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer raw.Close()
	db := sqlx.NewDb(raw, "mysql")

	fsys := fstest.MapFS{"migrations/001_init.sql": {Data: []byte("BROKEN")}}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT name FROM schema_migrations").WillReturnRows(sqlmock.NewRows([]string{"name"}))
	mock.ExpectBegin()
	mock.ExpectExec("BROKEN").WillReturnError(errSyntax)
	mock.ExpectRollback()

	if _, err := migrate(context.Background(), db, fsys); err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	body, err := migrationFS.ReadFile("migrations/001_init.sql")
	if err != nil {
		t.Fatal(err)
	}
	for _, table := range []string{"resource_reservations", "space_reservations", "event_attendance", "uq_attendance"} {
		if !regexp.MustCompile(table).Match(body) {
			t.Errorf("schema is missing %s", table)
		}
	}
}

type syntaxErr struct{}

func (syntaxErr) Error() string { return "syntax error" }

var errSyntax error = syntaxErr{}
