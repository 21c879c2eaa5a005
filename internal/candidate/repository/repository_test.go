package repository

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"recruit-intake/internal/candidate/domain"
)

var _ Repository = (*PostgresRepository)(nil)
var _ Repository = (*MemoryRepository)(nil)

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		if i >= len(r.values) {
			break
		}
		switch p := d.(type) {
		case *string:
			*p = r.values[i].(string)
		case *time.Time:
			*p = r.values[i].(time.Time)
		case *[]string:
			*p = r.values[i].([]string)
		}
	}
	return nil
}

type fakeDB struct {
	sql  string
	args []any
	row  fakeRow
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.sql, f.args = sql, args
	return f.row
}

func sampleCandidate(id string) *domain.Candidate {
	now := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	return &domain.Candidate{
		ID:        id,
		Name:      "Maria Silva",
		Phone:     "5511987654321",
		Email:     "maria@example.com",
		City:      "Sorocaba",
		Region:    "SP",
		Sex:       "Feminino",
		BirthDate: time.Date(2006, 10, 18, 0, 0, 0, 0, time.UTC),
		UpdatedAt: now,
	}
}

func TestPostgresUpsert_ReturnsStoredID(t *testing.T) {
	f := &fakeDB{row: fakeRow{values: []any{"existing-id"}}}
	repo := NewPostgresRepository(f)
	id, err := repo.Upsert(context.Background(), sampleCandidate("new-id"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if id != "existing-id" {
		t.Errorf("id = %q, want %q", id, "existing-id")
	}
	if !strings.Contains(f.sql, "ON CONFLICT (phone) DO UPDATE") {
		t.Errorf("upsert must resolve conflicts on phone, sql = %s", f.sql)
	}
	if f.args[2] != "5511987654321" {
		t.Errorf("phone arg = %v, want canonical phone", f.args[2])
	}
	if got := f.args[8].(*string); got != nil {
		t.Errorf("primary_role = %q, want NULL for empty role", *got)
	}
	if got := f.args[9].([]string); got == nil {
		t.Error("extra_roles must be an empty array, not NULL")
	}
	if got := f.args[10].(*string); got != nil {
		t.Errorf("resume_url = %q, want NULL so the stored URL is kept", *got)
	}
}

func TestPostgresUpsert_Errors(t *testing.T) {
	repo := NewPostgresRepository(&fakeDB{row: fakeRow{err: errors.New("connection reset")}})
	if _, err := repo.Upsert(context.Background(), sampleCandidate("id")); err == nil {
		t.Fatal("Upsert should surface database errors")
	}
	if _, err := repo.Upsert(context.Background(), &domain.Candidate{}); err == nil {
		t.Fatal("Upsert without phone should fail")
	}
}

func TestPostgresGetByPhone_NotFound(t *testing.T) {
	repo := NewPostgresRepository(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}})
	c, err := repo.GetByPhone(context.Background(), "5511987654321")
	if err != nil {
		t.Fatalf("GetByPhone: %v", err)
	}
	if c != nil {
		t.Errorf("GetByPhone = %+v, want nil", c)
	}
}

func TestPostgresGetByPhone_Found(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	f := &fakeDB{row: fakeRow{values: []any{
		"c1", "Maria Silva", "5511987654321", "maria@example.com", "Sorocaba", "SP", "Feminino",
		time.Date(2006, 10, 18, 0, 0, 0, 0, time.UTC), "Vendedora", []string{"Caixa"},
		"https://cdn.example.com/resumes/a.pdf", created, created,
	}}}
	c, err := NewPostgresRepository(f).GetByPhone(context.Background(), "5511987654321")
	if err != nil {
		t.Fatalf("GetByPhone: %v", err)
	}
	if c == nil || c.ID != "c1" || c.PrimaryRole != "Vendedora" || len(c.ExtraRoles) != 1 {
		t.Errorf("GetByPhone = %+v", c)
	}
}

func TestMemoryUpsert_SamePhoneUpdates(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	first := sampleCandidate("c1")
	first.ResumeURL = "https://cdn.example.com/resumes/a.pdf"
	id1, err := repo.Upsert(ctx, first)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	second := sampleCandidate("c2")
	second.Email = "maria.silva@example.com"
	id2, err := repo.Upsert(ctx, second)
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if id1 != "c1" || id2 != "c1" {
		t.Errorf("ids = %q, %q; want both c1", id1, id2)
	}
	if repo.Len() != 1 {
		t.Errorf("Len = %d, want 1", repo.Len())
	}
	got, _ := repo.GetByPhone(ctx, first.Phone)
	if got.Email != "maria.silva@example.com" {
		t.Errorf("Email = %q, want updated value", got.Email)
	}
	if got.ResumeURL != first.ResumeURL {
		t.Errorf("ResumeURL = %q, want %q kept", got.ResumeURL, first.ResumeURL)
	}
}

func TestMemoryGetByPhone_NotFound(t *testing.T) {
	c, err := NewMemoryRepository().GetByPhone(context.Background(), "5511000000000")
	if err != nil || c != nil {
		t.Errorf("GetByPhone = %v, %v; want nil, nil", c, err)
	}
}
