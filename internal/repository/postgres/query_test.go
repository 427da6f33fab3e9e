package postgres

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/karming-leong/datacentric-assingment/internal/domain"
	"github.com/karming-leong/datacentric-assingment/internal/repository"
)

func TestBuildListQueryOwnerOnly(t *testing.T) {
	sql, args := buildListQuery(domain.ItemQuery{Owner: "owner-1", Sort: domain.SortName})

	want := `SELECT ` + itemColumns + ` FROM items WHERE owner_id = $1 ORDER BY name COLLATE "C" ASC, created_at ASC, id ASC`
	if sql != want {
		t.Fatalf("unexpected sql:\n got: %s\nwant: %s", sql, want)
	}
	if !reflect.DeepEqual(args, []any{"owner-1"}) {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestBuildListQueryAllFilters(t *testing.T) {
	level := 3
	sql, args := buildListQuery(domain.ItemQuery{
		Owner: "owner-1",
		Level: &level,
		Text:  "pen'; DROP TABLE items; --",
		Type:  "Stationery",
		Sort:  domain.SortCreatedAt,
	})

	for _, fragment := range []string{
		"owner_id = $1",
		"AND primary_level = $2",
		"AND (strpos(lower(name), lower($3)) > 0 OR strpos(lower(type), lower($3)) > 0 OR strpos(lower(comment), lower($3)) > 0)",
		"AND type = $4",
		"ORDER BY created_at DESC, id ASC",
	} {
		if !strings.Contains(sql, fragment) {
			t.Fatalf("expected %q in %s", fragment, sql)
		}
	}
	if strings.Contains(sql, "DROP TABLE") {
		t.Fatalf("user input leaked into statement: %s", sql)
	}
	want := []any{"owner-1", 3, "pen'; DROP TABLE items; --", "Stationery"}
	if !reflect.DeepEqual(args, want) {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestBuildListQueryPlaceholdersFollowPresentFilters(t *testing.T) {
	sql, args := buildListQuery(domain.ItemQuery{Owner: "o", Type: "Books", Sort: domain.SortType})
	if !strings.Contains(sql, "AND type = $2") {
		t.Fatalf("type filter should take the second placeholder: %s", sql)
	}
	if !strings.Contains(sql, `ORDER BY type COLLATE "C" ASC`) {
		t.Fatalf("expected type ordering: %s", sql)
	}
	if len(args) != 2 {
		t.Fatalf("unexpected args: %v", args)
	}
}

func TestBuildListQueryStorageOrder(t *testing.T) {
	level := 1
	sql, _ := buildListQuery(domain.ItemQuery{Owner: "o", Level: &level})
	if !strings.HasSuffix(sql, "ORDER BY created_at ASC, id ASC") {
		t.Fatalf("expected storage order: %s", sql)
	}
}

func TestClassify(t *testing.T) {
	if classify(nil) != nil {
		t.Fatalf("nil should stay nil")
	}
	dup := &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "users_username_key"}
	if err := classify(dup); !errors.Is(err, repository.ErrDuplicate) || !errors.Is(err, dup) {
		t.Fatalf("expected duplicate, got %v", err)
	}
	badID := &pgconn.PgError{Code: codeInvalidTextRepresent}
	if err := classify(badID); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found for malformed id, got %v", err)
	}
	check := &pgconn.PgError{Code: codeCheckViolation, ConstraintName: "items_name_not_blank"}
	if err := classify(check); !errors.Is(err, repository.ErrConstraint) || !errors.Is(err, check) {
		t.Fatalf("expected constraint violation, got %v", err)
	}
	if err := classify(fmt.Errorf("query: %w", context.DeadlineExceeded)); !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected unavailable for deadline, got %v", err)
	}
	other := &pgconn.PgError{Code: "42P01"}
	if err := classify(other); errors.Is(err, repository.ErrUnavailable) || errors.Is(err, repository.ErrDuplicate) {
		t.Fatalf("unexpected classification for %v", err)
	}
}
