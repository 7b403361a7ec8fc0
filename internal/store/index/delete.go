package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type DeleteBuilder[W WhereState] struct {
	table string
	where *WhereCond
}

// DeleteFrom starts a DELETE against table.
func DeleteFrom(table string) DeleteBuilder[WithoutWhere] {
	return DeleteBuilder[WithoutWhere]{table: table}
}

// Where sets the row filter, moving the builder into the executable state.
func (b DeleteBuilder[WithoutWhere]) Where(c *WhereCond) DeleteBuilder[WithWhere] {
	b.where = c
	return DeleteBuilder[WithWhere](b)
}

// Exec runs the DELETE and returns the number of affected rows.
func (b DeleteBuilder[WithWhere]) Exec(ctx context.Context, db *sqlx.DB) (int64, error) {
	q, args, err := b.build()
	if err != nil {
		return 0, err
	}
	q = db.Rebind(q)

	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (b DeleteBuilder[W]) build() (string, []any, error) {
	if b.where == nil {
		return "", nil, ErrWhereRequired
	}
	if !safeIdent(b.table) {
		return "", nil, fmt.Errorf("unsafe table: %s", b.table)
	}

	sb := strings.Builder{}
	sb.WriteString("DELETE FROM ")
	sb.WriteString(b.table)
	sb.WriteString(" WHERE ")
	sb.WriteString(b.where.GetSQL())

	return sb.String(), b.where.args, nil
}
