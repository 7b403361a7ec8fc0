package index

import (
	"fmt"
	"strings"
)

// InsertCond carries the positional values of an INSERT row.
type InsertCond struct {
	Arg []any
}

// UpdateCond is one column assignment of an UPDATE's SET list.
type UpdateCond struct {
	Set string
	Arg any
}

type OrderbyCond struct {
	Column    string
	Direction DirectionEnum
}

func (c OrderbyCond) GetSQL() string {
	if c.Direction == DirectionDefined {
		c.Direction = DESC
	}
	return fmt.Sprintf("%s %s", c.Column, c.Direction.String())
}

// WhereCond is an opaque WHERE fragment plus its bind args, composed via
// Eq/NotEq/Lt and And/Or.
type WhereCond struct {
	sql  string
	args []any
}

func (c WhereCond) GetSQL() string { return c.sql }
func (c WhereCond) GetArgs() []any { return c.args }
func (c WhereCond) isEmpty() bool  { return strings.TrimSpace(c.sql) == "" }

func Eq(col string, v any) *WhereCond {
	return &WhereCond{sql: fmt.Sprintf("%s = ?", col), args: []any{v}}
}

func NotEq(col string, v any) *WhereCond {
	return &WhereCond{sql: fmt.Sprintf("%s <> ?", col), args: []any{v}}
}

// Lt builds a strict range bound, e.g. "tickets created before mine" for
// the ahead-of-me count.
func Lt(col string, v any) *WhereCond {
	return &WhereCond{sql: fmt.Sprintf("%s < ?", col), args: []any{v}}
}

func And(conds ...*WhereCond) *WhereCond {
	return joinConds(" AND ", conds)
}

func Or(conds ...*WhereCond) *WhereCond {
	return joinConds(" OR ", conds)
}

func joinConds(sep string, conds []*WhereCond) *WhereCond {
	var parts []string
	var args []any
	for _, c := range conds {
		if c.isEmpty() {
			continue
		}
		parts = append(parts, "("+c.sql+")")
		args = append(args, c.args...)
	}
	return &WhereCond{sql: strings.Join(parts, sep), args: args}
}
