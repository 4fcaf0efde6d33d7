package service

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/iliyamo/neighborhood-exchange/internal/database"
	"github.com/iliyamo/neighborhood-exchange/internal/model"
)

// TestConcurrentReserveSingleWinner runs against a real MySQL because the
// guarantee comes from the row lock.  Set MYSQL_TEST_DSN, e.g.
// "root:pw@tcp(127.0.0.1:3306)/nx_test?parseTime=true&loc=UTC&multiStatements=true".
func TestConcurrentReserveSingleWinner(t *testing.T) {
	dsn := os.Getenv("MYSQL_TEST_DSN")
	if dsn == "" {
		t.Skip("MYSQL_TEST_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := sqlx.Open("mysql", dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	db.SetMaxOpenConns(32)
	if _, err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	res, err := db.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, location) VALUES (?, ?, ?, ?)",
		"Owner", uuid.NewString()+"@example.test", "x", "here")
	if err != nil {
		t.Fatal(err)
	}
	ownerID, _ := res.LastInsertId()
	res, err = db.ExecContext(ctx,
		"INSERT INTO spaces (user_id, title, availability, date_posted) VALUES (?, ?, 'available', UTC_TIMESTAMP())",
		ownerID, "Hall")
	if err != nil {
		t.Fatal(err)
	}
	spaceID, _ := res.LastInsertId()

	s := NewReservationService(db, nil, time.UTC)
	r := model.DateRange{Start: model.MustDate("2030-05-01"), End: model.MustDate("2030-05-03")}

	const n = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
		others    []error
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := s.Reserve(ctx, model.KindSpace, uint64(spaceID), uint64(ownerID), r)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrOverlapConflict):
				conflicts++
			default:
				others = append(others, err)
			}
		}()
	}
	close(start)
	wg.Wait()

	if len(others) > 0 {
		t.Fatalf("unexpected errors: %v", others)
	}
	if wins != 1 || conflicts != n-1 {
		t.Fatalf("wins=%d conflicts=%d, want 1 and %d", wins, conflicts, n-1)
	}
	var stored int
	if err := db.GetContext(ctx, &stored, "SELECT COUNT(*) FROM space_reservations WHERE space_id = ?", spaceID); err != nil {
		t.Fatal(err)
	}
	if stored != 1 {
		t.Fatalf("%d reservations stored, want 1", stored)
	}
}
