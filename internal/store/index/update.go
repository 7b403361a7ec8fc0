package index

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var ErrSetRequired = errors.New("update requires set")

type UpdateBuilder[W WhereState] struct {
	table string
	sets  []UpdateCond
	where *WhereCond
}

// UpdateFrom starts an UPDATE against table.
func UpdateFrom(table string) UpdateBuilder[WithoutWhere] {
	return UpdateBuilder[WithoutWhere]{table: table}
}

// Set appends one or more column assignments.
func (b UpdateBuilder[W]) Set(conds ...UpdateCond) UpdateBuilder[W] {
	b.sets = append(b.sets, conds...)
	return b
}

// Where sets the row filter, moving the builder into the executable state.
func (b UpdateBuilder[WithoutWhere]) Where(c *WhereCond) UpdateBuilder[WithWhere] {
	b.where = c
	return UpdateBuilder[WithWhere](b)
}

// Exec runs the UPDATE and returns the number of affected rows.
func (b UpdateBuilder[WithWhere]) Exec(ctx context.Context, db *sqlx.DB) (int64, error) {
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

func (b UpdateBuilder[W]) build() (string, []any, error) {
	if len(b.sets) == 0 {
		return "", nil, ErrSetRequired
	}
	if b.where == nil {
		return "", nil, ErrWhereRequired
	}
	if !safeIdent(b.table) {
		return "", nil, fmt.Errorf("unsafe table: %s", b.table)
	}

	setStrs := make([]string, len(b.sets))
	setArgs := make([]any, len(b.sets))
	for i, s := range b.sets {
		setStrs[i] = fmt.Sprintf("%s = ?", s.Set)
		setArgs[i] = s.Arg
	}

	sb := strings.Builder{}
	sb.WriteString("UPDATE ")
	sb.WriteString(b.table)
	sb.WriteString(" SET ")
	sb.WriteString(strings.Join(setStrs, ", "))
	sb.WriteString(" WHERE ")
	sb.WriteString(b.where.GetSQL())

	return sb.String(), append(setArgs, b.where.args...), nil
}
