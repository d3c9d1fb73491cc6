package leads

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v3"
)

var leadRowColumns = []string{
	"id", "name", "phone", "email", "source", "captured_at", "business_name", "intent_level",
	"service_discussed", "qualifying_answer", "page_url", "language", "reactions", "session_id", "created_at",
}

func TestPostgresRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	data := sampleLead("Jane")
	data.IntentLevel = "high"
	data.SessionID = "sess-1"
	created := time.Date(2024, 1, 1, 10, 0, 1, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO leads").
		WithArgs(pgxmock.AnyArg(), "Jane", "9876543210", "", Source, data.Timestamp, "Sirah Dental Care", "high",
			"", "", "", "", "", "sess-1").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(created))

	lead, err := repo.Create(context.Background(), data)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if lead.ID == "" || !lead.CreatedAt.Equal(created) || lead.Name != "Jane" {
		t.Fatalf("unexpected lead: %#v", lead)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositoryCreateValidates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	if _, err := repo.Create(context.Background(), LeadData{Name: "Jane"}); err != ErrMissingContact {
		t.Fatalf("expected ErrMissingContact, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("no query should run: %v", err)
	}
}

func TestPostgresRepositoryGetByID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	id := uuid.New()
	now := time.Now().UTC()
	rows := pgxmock.NewRows(leadRowColumns).AddRow(
		id, "Jane", "9876543210", "jane@example.com", Source, "2024-01-01T10:00:00.000Z", "Sirah Dental Care", "high",
		"Root Canal", "", "https://clinic.example/", "en", "👍x1", "sess-1", now,
	)
	mock.ExpectQuery("SELECT id").WithArgs(id.String()).WillReturnRows(rows)

	lead, err := repo.GetByID(context.Background(), id.String())
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if lead.ID != id.String() || lead.ServiceDiscussed != "Root Canal" || lead.Email != "jane@example.com" {
		t.Fatalf("unexpected lead: %#v", lead)
	}

	mock.ExpectQuery("SELECT id").WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	if _, err := repo.GetByID(context.Background(), "missing"); err != ErrLeadNotFound {
		t.Fatalf("expected ErrLeadNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresRepositoryList(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	defer mock.Close()

	repo := newPostgresRepositoryWithDB(mock)
	now := time.Now().UTC()
	rows := pgxmock.NewRows(leadRowColumns).
		AddRow(uuid.New(), "Ravi", "9876500000", "", Source, "t2", "Sirah Dental Care", "", "", "", "", "ta", "", "s2", now).
		AddRow(uuid.New(), "Jane", "9876543210", "", Source, "t1", "Sirah Dental Care", "", "", "", "", "en", "", "s1", now.Add(-time.Minute))
	mock.ExpectQuery("SELECT id").WithArgs("Sirah Dental Care", 50, 0).WillReturnRows(rows)

	list, err := repo.List(context.Background(), ListFilter{BusinessName: "Sirah Dental Care"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Ravi" || list[1].Language != "en" {
		t.Fatalf("unexpected list: %#v", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
