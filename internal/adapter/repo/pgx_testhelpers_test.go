package repo

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type simpleRow struct {
	scan func(dest ...any) error
}

func (r simpleRow) Scan(dest ...any) error {
	if r.scan == nil {
		return pgx.ErrNoRows
	}
	return r.scan(dest...)
}

// stubExecutor scripts responses per statement, keyed by the sql marker line.
type stubExecutor struct {
	rows map[string]simpleRow
	tags map[string]pgconn.CommandTag
	errs map[string]error
}

func newStubExecutor() *stubExecutor {
	return &stubExecutor{
		rows: make(map[string]simpleRow),
		tags: make(map[string]pgconn.CommandTag),
		errs: make(map[string]error),
	}
}

func markerOf(query string) string {
	for i := 0; i < len(query); i++ {
		if query[i] == '\n' {
			return query[:i]
		}
	}
	return query
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	m := markerOf(query)
	if err, ok := s.errs[m]; ok {
		return pgconn.CommandTag{}, err
	}
	return s.tags[m], nil
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return s.rows[markerOf(query)]
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, s.errs[markerOf(query)]
}

func setInts(dest []any, values ...int) {
	for i, v := range values {
		if p, ok := dest[i].(*int); ok {
			*p = v
		}
	}
}
