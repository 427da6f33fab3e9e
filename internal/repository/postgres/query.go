package postgres

import (
	"strconv"
	"strings"

	"github.com/karming-leong/datacentric-assingment/internal/domain"
)

const itemColumns = `id::text, owner_id::text, name, type, primary_level, comment, acquired, created_at`

// buildListQuery composes the owner-scoped item selection. User input only ever
// reaches the statement as positional arguments.
func buildListQuery(q domain.ItemQuery) (string, []any) {
	var b strings.Builder
	args := []any{q.Owner}
	b.WriteString("SELECT " + itemColumns + " FROM items WHERE owner_id = $1")

	if q.Level != nil {
		args = append(args, *q.Level)
		b.WriteString(" AND primary_level = " + placeholder(len(args)))
	}
	if q.Text != "" {
		args = append(args, q.Text)
		p := placeholder(len(args))
		b.WriteString(" AND (strpos(lower(name), lower(" + p + ")) > 0" +
			" OR strpos(lower(type), lower(" + p + ")) > 0" +
			" OR strpos(lower(comment), lower(" + p + ")) > 0)")
	}
	if q.Type != "" {
		args = append(args, q.Type)
		b.WriteString(" AND type = " + placeholder(len(args)))
	}

	b.WriteString(" ORDER BY " + orderBy(q.Sort))
	return b.String(), args
}

func orderBy(key domain.SortKey) string {
	switch key {
	case domain.SortName:
		return `name COLLATE "C" ASC, created_at ASC, id ASC`
	case domain.SortType:
		return `type COLLATE "C" ASC, created_at ASC, id ASC`
	case domain.SortCreatedAt:
		return `created_at DESC, id ASC`
	default:
		return `created_at ASC, id ASC`
	}
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
