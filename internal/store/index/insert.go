package index

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var ErrValuesRequired = errors.New("insert requires values")

type InsertBuilder struct {
	table      string
	values     *InsertCond
	upsertCols []string
}

// InsertFrom starts an INSERT into table.
func InsertFrom(table string) InsertBuilder {
	return InsertBuilder{table: table}
}

// Values sets the positional row values. Order must match the table's
// column order.
func (b InsertBuilder) Values(conds *InsertCond) InsertBuilder {
	b.values = conds
	return b
}

// OnDuplicateKeyUpdate turns the INSERT into an upsert on the given
// columns, each refreshed from the incoming row's value. The mirror
// writes use this so a replayed transition never trips the primary key.
func (b InsertBuilder) OnDuplicateKeyUpdate(cols ...string) InsertBuilder {
	b.upsertCols = append(b.upsertCols, cols...)
	return b
}

// Exec runs the INSERT and returns the last insert id.
func (b InsertBuilder) Exec(ctx context.Context, db *sqlx.DB) (int64, error) {
	q, args, err := b.build()
	if err != nil {
		return 0, err
	}
	q = db.Rebind(q)

	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

func (b InsertBuilder) build() (string, []any, error) {
	if b.values == nil || len(b.values.Arg) == 0 {
		return "", nil, ErrValuesRequired
	}
	if !safeIdent(b.table) {
		return "", nil, fmt.Errorf("unsafe table: %s", b.table)
	}

	valStrs := make([]string, 0, len(b.values.Arg))
	for range b.values.Arg {
		valStrs = append(valStrs, "?")
	}

	sb := strings.Builder{}
	sb.WriteString("INSERT INTO ")
	sb.WriteString(b.table)
	sb.WriteString(" VALUES ")
	sb.WriteString("(" + strings.Join(valStrs, ", ") + ")")

	if len(b.upsertCols) > 0 {
		assigns := make([]string, 0, len(b.upsertCols))
		for _, c := range b.upsertCols {
			if !safeIdent(c) {
				return "", nil, fmt.Errorf("unsafe column: %s", c)
			}
			assigns = append(assigns, fmt.Sprintf("%s = VALUES(%s)", c, c))
		}
		sb.WriteString(" ON DUPLICATE KEY UPDATE ")
		sb.WriteString(strings.Join(assigns, ", "))
	}

	return sb.String(), b.values.Arg, nil
}
