package logic

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	"github.com/fealsamh/go-utils/dbutils"
	"github.com/google/uuid"
	"github.com/mailstepcz/slice"
)

type tableColumn struct {
	name string
	typ  string
}

// AddTable registers a relation whose solutions are the rows of a database
// table. Columns are given as "name::type" with the types string, int,
// float and uuid; the relation takes one argument per column. Call
// arguments that are ground when the relation is invoked are pushed down
// into the query as WHERE conditions.
func (l *Loader) AddTable(db dbutils.Querier, symbol, table string, columns ...string) {
	cols := make([]tableColumn, len(columns))
	for i, c := range columns {
		name, typ, ok := strings.Cut(c, "::")
		if !ok {
			panic("invalid column definition (bad structure): " + c)
		}
		switch typ {
		case "string", "int", "float", "uuid":
		default:
			panic("unknown column type: " + typ)
		}
		cols[i] = tableColumn{name: name, typ: typ}
	}
	l.AddNative(symbol, tableRelation(db, table, cols))
}

func tableRelation(db dbutils.Querier, table string, cols []tableColumn) NativeRelation {
	return func(ctx context.Context, args []Term) Goal {
		return func(s *Subst) Stream {
			if len(args) != len(cols) {
				panic("bad number of arguments in call of table relation '" + table + "'")
			}

			var (
				whereTail string
				queryArgs []interface{}
			)
			for i, col := range cols {
				arg := s.walk(args[i])
				if _, ok := arg.(*Var); ok {
					continue
				}
				if whereTail == "" {
					whereTail += " WHERE "
				} else {
					whereTail += " AND "
				}
				queryArgs = append(queryArgs, sqlValue(arg))
				whereTail += strconv.Quote(col.name) + " = $" + strconv.Itoa(len(queryArgs))
			}

			rows, err := db.QueryContext(ctx, `SELECT `+
				strings.Join(slice.Fmap(func(col tableColumn) string {
					return strconv.Quote(col.name)
				}, cols), ", ")+
				` FROM `+strconv.Quote(table)+whereTail, queryArgs...)
			if err != nil {
				panic(err)
			}
			defer rows.Close()

			r := make([]interface{}, len(cols))
			for i, col := range cols {
				switch col.typ {
				case "string":
					r[i] = new(sql.Null[string])
				case "int":
					r[i] = new(sql.Null[int])
				case "float":
					r[i] = new(sql.Null[float64])
				case "uuid":
					r[i] = new(uuid.UUID)
				}
			}

			var rowGoals []Goal
			for rows.Next() {
				if err := rows.Scan(r...); err != nil {
					panic(err)
				}
				vals := slice.Fmap(termFromScan, r)
				row := Goal(Succeed)
				for i := len(vals) - 1; i >= 0; i-- {
					row = Both(Unify(args[i], vals[i]), row)
				}
				rowGoals = append(rowGoals, row)
			}
			if err := rows.Err(); err != nil {
				panic(err)
			}
			g := Goal(Fail)
			for i := len(rowGoals) - 1; i >= 0; i-- {
				g = Either(rowGoals[i], g)
			}
			return g(s)
		}
	}
}

func termFromScan(x any) Term {
	switch x := x.(type) {
	case *sql.Null[string]:
		if !x.Valid {
			return Nil{}
		}
		return String(x.V)
	case *sql.Null[int]:
		if !x.Valid {
			return Nil{}
		}
		return Integer(x.V)
	case *sql.Null[float64]:
		if !x.Valid {
			return Nil{}
		}
		return Float(x.V)
	case *uuid.UUID:
		return String(x.String())
	}
	panic("unknown value type")
}

func sqlValue(t Term) any {
	switch x := t.(type) {
	case String:
		return string(x)
	case Integer:
		return int(x)
	case Float:
		return float64(x)
	case Atom:
		return string(x)
	}
	panic("value not usable in a query: " + t.String())
}
