package postgres

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/gosuda/escrow-admin/internal/domain"
)

var columnName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`) //nolint:gochecknoglobals // compiled once

// buildUpdate renders a single-row UPDATE keyed by id. The row is the unit of
// serialization: concurrent updates to the same id are ordered by postgres and
// the last writer wins per column. When allowed is nil any well-formed column
// name is accepted; identifiers are always quoted and values always bound.
func buildUpdate(table string, allowed map[string]struct{}, id uuid.UUID, f domain.Fields, returning string) (string, []any, error) {
	if len(f) == 0 {
		return "", nil, fmt.Errorf("empty update: %w", domain.ErrInvalidInput)
	}

	cols := slices.Sorted(maps.Keys(f))
	sets := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols)+1)
	args = append(args, id)

	for _, col := range cols {
		if !columnName.MatchString(col) {
			return "", nil, fmt.Errorf("column %q: %w", col, domain.ErrInvalidInput)
		}
		if allowed != nil {
			if _, ok := allowed[col]; !ok {
				return "", nil, fmt.Errorf("column %q is not writable on %s: %w", col, table, domain.ErrInvalidInput)
			}
		}
		args = append(args, f[col])
		sets = append(sets, fmt.Sprintf("%s = $%d", pgx.Identifier{col}.Sanitize(), len(args)))
	}

	sql := fmt.Sprintf("UPDATE %s AS t SET %s WHERE t.id = $1 RETURNING %s",
		pgx.Identifier{table}.Sanitize(), strings.Join(sets, ", "), returning)

	return sql, args, nil
}

func columnSet(cols ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		set[c] = struct{}{}
	}
	return set
}
