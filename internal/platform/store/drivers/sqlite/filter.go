package sqlite

import (
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/aussiebroadwan/multiman/internal/platform/domain"
)

// compileCond turns a parsed filter into a squirrel predicate. Column names
// come from the domain whitelist and JSON paths are bound as parameters,
// so no caller text is ever spliced into SQL.
func compileCond(c domain.Cond) sq.Sqlizer {
	switch c := c.(type) {
	case domain.And:
		out := make(sq.And, 0, len(c))
		for _, sub := range c {
			out = append(out, compileCond(sub))
		}
		return out
	case domain.Or:
		out := make(sq.Or, 0, len(c))
		for _, sub := range c {
			out = append(out, compileCond(sub))
		}
		return out
	case domain.Compare:
		if c.Field.IsColumn() {
			return compileColumnCompare(c)
		}
		return compileDataCompare(c)
	case domain.In:
		return compileIn(c)
	case domain.Exists:
		op := "IS NULL"
		if c.Want {
			op = "IS NOT NULL"
		}
		return sq.Expr("json_type(data, ?) "+op, jsonPath(c.Field.Path))
	default:
		// Unreachable for parser output; match nothing rather than everything.
		return sq.Expr("0")
	}
}

var sqlOps = map[domain.Op]string{
	domain.OpEq:  "=",
	domain.OpNe:  "<>",
	domain.OpGt:  ">",
	domain.OpGte: ">=",
	domain.OpLt:  "<",
	domain.OpLte: "<=",
}

func compileColumnCompare(c domain.Compare) sq.Sqlizer {
	s, _ := c.Value.AsString()
	return sq.Expr(c.Field.Column+" "+sqlOps[c.Op]+" ?", columnArg(c.Field.Column, s))
}

// columnArg rewrites RFC 3339 operands of timestamp columns into the
// stored layout so text comparison orders correctly.
func columnArg(column, s string) string {
	if column != domain.ColumnCreatedAt && column != domain.ColumnUpdatedAt {
		return s
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return s
	}
	return formatTime(t)
}

func compileDataCompare(c domain.Compare) sq.Sqlizer {
	path := jsonPath(c.Field.Path)
	v := c.Value

	switch c.Op {
	case domain.OpEq, domain.OpNe:
		eq := c.Op == domain.OpEq
		switch v.Kind() {
		case domain.KindNull:
			if eq {
				return sq.Expr("json_extract(data, ?) IS NULL", path)
			}
			return sq.Expr("json_extract(data, ?) IS NOT NULL", path)
		case domain.KindBool:
			b, _ := v.AsBool()
			if eq {
				return sq.Expr("json_type(data, ?) = ?", path, boolType(b))
			}
			return sq.Expr("json_type(data, ?) IS NOT ?", path, boolType(b))
		case domain.KindArray, domain.KindObject:
			lit, _ := v.MarshalJSON()
			if eq {
				return sq.Expr("json_extract(data, ?) = json(?)", path, string(lit))
			}
			return sq.Expr("json_extract(data, ?) IS NOT json(?)", path, string(lit))
		default:
			if eq {
				return sq.Expr("json_extract(data, ?) = ?", path, scalarArg(v))
			}
			// $ne also matches documents where the path is absent.
			return sq.Expr("json_extract(data, ?) IS NOT ?", path, scalarArg(v))
		}
	default:
		// Range comparisons only match values of the operand's JSON type.
		types := "'text'"
		if v.Kind() == domain.KindNumber {
			types = "'integer','real'"
		}
		return sq.Expr(
			fmt.Sprintf("(json_type(data, ?) IN (%s) AND json_extract(data, ?) %s ?)", types, sqlOps[c.Op]),
			path, path, scalarArg(v),
		)
	}
}

func compileIn(c domain.In) sq.Sqlizer {
	if c.Field.IsColumn() {
		vals := make([]string, 0, len(c.Values))
		for _, v := range c.Values {
			s, _ := v.AsString()
			vals = append(vals, columnArg(c.Field.Column, s))
		}
		if c.Negate {
			return sq.NotEq{c.Field.Column: vals}
		}
		return sq.Eq{c.Field.Column: vals}
	}

	op := domain.OpEq
	if c.Negate {
		op = domain.OpNe
	}
	parts := make([]sq.Sqlizer, 0, len(c.Values))
	for _, v := range c.Values {
		parts = append(parts, compileDataCompare(domain.Compare{Field: c.Field, Op: op, Value: v}))
	}
	if c.Negate {
		return sq.And(parts)
	}
	return sq.Or(parts)
}

// orderExpr renders one ORDER BY term. Missing data paths sort as NULL,
// which SQLite places first ascending.
func orderExpr(k domain.SortKey) (string, []interface{}) {
	dir := " ASC"
	if k.Desc {
		dir = " DESC"
	}
	if k.Field.IsColumn() {
		return k.Field.Column + dir, nil
	}
	return "json_extract(data, ?)" + dir, []interface{}{jsonPath(k.Field.Path)}
}

// jsonPath renders segments as a SQLite JSON path. Object keys are quoted
// and all-digit segments become array indexes.
func jsonPath(segs []string) string {
	var b strings.Builder
	b.WriteString("$")
	for _, s := range segs {
		if isIndex(s) {
			b.WriteString("[" + s + "]")
			continue
		}
		b.WriteString(`."` + s + `"`)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func boolType(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// scalarArg binds numbers as int64 when integral and float64 otherwise so
// SQLite compares them numerically.
func scalarArg(v domain.Value) interface{} {
	if s, ok := v.AsString(); ok {
		return s
	}
	if n, ok := v.AsInt64(); ok {
		return n
	}
	if f, ok := v.AsFloat64(); ok {
		return f
	}
	lit, _ := v.NumberLiteral()
	return lit
}
