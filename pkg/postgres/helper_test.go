package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestViolationHelpers(t *testing.T) {
	fk := fmt.Errorf("insert ride event: %w", &pgconn.PgError{Code: "23503"})
	uniq := &pgconn.PgError{Code: "23505"}

	tests := []struct {
		name   string
		err    error
		fk     bool
		unique bool
	}{
		{"nil", nil, false, false},
		{"plain", errors.New("boom"), false, false},
		{"wrapped foreign key", fk, true, false},
		{"unique", uniq, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsForeignKeyViolation(tt.err); got != tt.fk {
				t.Errorf("IsForeignKeyViolation = %v, want %v", got, tt.fk)
			}
			if got := IsUniqueViolation(tt.err); got != tt.unique {
				t.Errorf("IsUniqueViolation = %v, want %v", got, tt.unique)
			}
		})
	}
}

func TestMigrationFiles_SortedAndUpOnly(t *testing.T) {
	files, err := migrationFiles(Migrations)
	if err != nil {
		t.Fatalf("migrationFiles: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no migrations embedded")
	}
	for i := 1; i < len(files); i++ {
		if files[i-1] >= files[i] {
			t.Fatalf("migrations not sorted: %v", files)
		}
	}
}
