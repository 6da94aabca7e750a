package logic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/phomola/lrparser"
	"github.com/phomola/textkit"
)

var grammar = lrparser.NewGrammar(lrparser.MustBuildRules([]*lrparser.SynSem{
	{Syn: `Init -> Stmts`, Sem: func(args []any) any { return args[0] }},
	{Syn: `Stmts -> Stmts Stmt`, Sem: func(args []any) any { return append(args[0].([]AST), args[1].(AST)) }},
	{Syn: `Stmts -> Stmt`, Sem: func(args []any) any { return []AST{args[0].(AST)} }},
	{Syn: `Stmt -> Call "."`, Sem: func(args []any) any {
		return &ASTRule{Head: args[0].(*ASTCall)}
	}},
	{Syn: `Stmt -> Call "<-" Calls "."`, Sem: func(args []any) any {
		return &ASTRule{Head: args[0].(*ASTCall), Body: args[2].([]*ASTCall)}
	}},
	{Syn: `Stmt -> "?-" Calls "."`, Sem: func(args []any) any {
		return &ASTQuery{Calls: args[1].([]*ASTCall)}
	}},
	{Syn: `Calls -> Calls "," Call`, Sem: func(args []any) any {
		return append(args[0].([]*ASTCall), args[2].(*ASTCall))
	}},
	{Syn: `Calls -> Call`, Sem: func(args []any) any { return []*ASTCall{args[0].(*ASTCall)} }},
	{Syn: `Call -> ident Args`, Sem: func(args []any) any {
		return &ASTCall{Symbol: args[0].(string), Args: args[1].([]ASTExpr)}
	}},
	{Syn: `Call -> ident`, Sem: func(args []any) any { return &ASTCall{Symbol: args[0].(string)} }},
	{Syn: `Args -> Args Arg`, Sem: func(args []any) any {
		return append(args[0].([]ASTExpr), args[1].(ASTExpr))
	}},
	{Syn: `Args -> Arg`, Sem: func(args []any) any { return []ASTExpr{args[0].(ASTExpr)} }},
	{Syn: `Arg -> ident`, Sem: func(args []any) any { return identExpr(args[0].(string)) }},
	{Syn: `Arg -> integer`, Sem: func(args []any) any { return &ASTInteger{Value: args[0].(int)} }},
	{Syn: `Arg -> string`, Sem: func(args []any) any { return &ASTString{Value: args[0].(string)} }},
	{Syn: `Arg -> "(" ident ")"`, Sem: func(args []any) any {
		return &ASTCompound{Symbol: args[1].(string)}
	}},
	{Syn: `Arg -> "(" ident Args ")"`, Sem: func(args []any) any {
		return &ASTCompound{Symbol: args[1].(string), Args: args[2].([]ASTExpr)}
	}},
	{Syn: `Arg -> "[" "]"`, Sem: func(args []any) any { return new(ASTList) }},
	{Syn: `Arg -> "[" List "]"`, Sem: func(args []any) any {
		return &ASTList{Elems: args[1].([]ASTExpr)}
	}},
	{Syn: `List -> Arg`, Sem: func(args []any) any { return []ASTExpr{args[0].(ASTExpr)} }},
	{Syn: `List -> List "," Arg`, Sem: func(args []any) any {
		return append(args[0].([]ASTExpr), args[2].(ASTExpr))
	}},
}))

func identExpr(name string) ASTExpr {
	switch {
	case strings.HasPrefix(name, "_"):
		return &ASTAnon{Name: name}
	case symbolIsUpper(name):
		return &ASTCompound{Symbol: name}
	default:
		return &ASTVariable{Name: name}
	}
}

func symbolIsUpper(s string) bool {
	if len(s) > 0 {
		return s[:1] == strings.ToUpper(s[:1]) && s[:1] != strings.ToLower(s[:1])
	}
	return false
}

// AST is an abstract syntax tree.
type AST interface {
	fmt.Stringer
}

// ASTExpr is a term node.
type ASTExpr interface {
	AST
}

// ASTRule is a fact or rule node.
type ASTRule struct {
	Head *ASTCall
	Body []*ASTCall
	Loc  textkit.Location
}

func (r *ASTRule) String() string {
	var sb strings.Builder
	sb.WriteString(r.Head.String())
	for i, c := range r.Body {
		if i == 0 {
			sb.WriteString(" <- ")
		} else {
			sb.WriteString(", ")
		}
		sb.WriteString(c.String())
	}
	sb.WriteRune('.')
	return sb.String()
}

// ASTQuery is a query node, a conjunction of calls.
type ASTQuery struct {
	Calls []*ASTCall
	Loc   textkit.Location
}

func (q *ASTQuery) String() string {
	var sb strings.Builder
	sb.WriteString("?- ")
	for i, c := range q.Calls {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(c.String())
	}
	sb.WriteRune('.')
	return sb.String()
}

// ASTCall is a predicate invocation node. It doubles as the head of a rule.
type ASTCall struct {
	Symbol string
	Args   []ASTExpr
	Loc    textkit.Location
}

func (c *ASTCall) String() string {
	var sb strings.Builder
	sb.WriteString(c.Symbol)
	for _, arg := range c.Args {
		sb.WriteRune(' ')
		sb.WriteString(arg.String())
	}
	return sb.String()
}

// ASTCompound is a compound term node; with no arguments it is a bare
// symbol.
type ASTCompound struct {
	Symbol string
	Args   []ASTExpr
	Loc    textkit.Location
}

func (t *ASTCompound) String() string {
	if len(t.Args) == 0 {
		return t.Symbol
	}
	var sb strings.Builder
	sb.WriteRune('(')
	sb.WriteString(t.Symbol)
	for _, arg := range t.Args {
		sb.WriteRune(' ')
		sb.WriteString(arg.String())
	}
	sb.WriteRune(')')
	return sb.String()
}

// ASTList is a list literal node.
type ASTList struct {
	Elems []ASTExpr
	Loc   textkit.Location
}

func (l *ASTList) String() string {
	var sb strings.Builder
	sb.WriteRune('[')
	for i, x := range l.Elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(x.String())
	}
	sb.WriteRune(']')
	return sb.String()
}

// ASTVariable is a logic variable node.
type ASTVariable struct {
	Name string
	Loc  textkit.Location
}

func (v *ASTVariable) String() string { return v.Name }

// ASTAnon is an anonymous variable node. Every occurrence is independent.
type ASTAnon struct {
	Name string
	Loc  textkit.Location
}

func (a *ASTAnon) String() string { return a.Name }

// ASTInteger is an integer literal node.
type ASTInteger struct {
	Value int
	Loc   textkit.Location
}

func (i *ASTInteger) String() string { return strconv.Itoa(i.Value) }

// ASTString is a string literal node.
type ASTString struct {
	Value string
	Loc   textkit.Location
}

func (s *ASTString) String() string { return strconv.Quote(s.Value) }

// ErrIllFormed signifies a parse error.
var ErrIllFormed = errors.New("parse error")

func parseSource(code string) ([]AST, error) {
	tok := textkit.Tokeniser{
		CommentPrefix: "#",
		StringRune:    '"',
		IdentChars:    "_'",
	}
	tokens := tok.Tokenise(code, "")
	tokens = lrparser.CoalesceSymbols(tokens, []string{"<-", "?-"})
	r, err := grammar.Parse(tokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIllFormed, err)
	}
	stmts, ok := r.([]AST)
	if !ok {
		panic("unexpected type of parser output")
	}
	return stmts, nil
}

// ParseProgram parses program text into a sequence of fact and rule nodes.
func ParseProgram(code string) ([]*ASTRule, error) {
	stmts, err := parseSource(code)
	if err != nil {
		return nil, err
	}
	rules := make([]*ASTRule, 0, len(stmts))
	for _, stmt := range stmts {
		r, ok := stmt.(*ASTRule)
		if !ok {
			return nil, fmt.Errorf("%w: query in program text: %s", ErrIllFormed, stmt)
		}
		if err := checkCalls(append([]*ASTCall{r.Head}, r.Body...)); err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// ParseQuery parses query text, a comma-separated sequence of calls.
func ParseQuery(code string) ([]*ASTCall, error) {
	stmts, err := parseSource("?- " + code + " .")
	if err != nil {
		return nil, err
	}
	if len(stmts) != 1 {
		return nil, fmt.Errorf("%w: extra input in query", ErrIllFormed)
	}
	q, ok := stmts[0].(*ASTQuery)
	if !ok {
		return nil, fmt.Errorf("%w: not a query: %s", ErrIllFormed, stmts[0])
	}
	if err := checkCalls(q.Calls); err != nil {
		return nil, err
	}
	return q.Calls, nil
}

// checkCalls enforces that predicate symbols are capitalized; lowercase
// names are variables and a variable is not callable. Compound symbols in
// arguments are held to the same rule.
func checkCalls(calls []*ASTCall) error {
	for _, c := range calls {
		if !symbolIsUpper(c.Symbol) {
			return fmt.Errorf("%w: predicate symbol '%s' must be capitalized", ErrIllFormed, c.Symbol)
		}
		for _, arg := range c.Args {
			if err := checkExpr(arg); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkExpr(node ASTExpr) error {
	switch t := node.(type) {
	case *ASTCompound:
		if !symbolIsUpper(t.Symbol) {
			return fmt.Errorf("%w: compound symbol '%s' must be capitalized", ErrIllFormed, t.Symbol)
		}
		for _, arg := range t.Args {
			if err := checkExpr(arg); err != nil {
				return err
			}
		}
	case *ASTList:
		for _, el := range t.Elems {
			if err := checkExpr(el); err != nil {
				return err
			}
		}
	}
	return nil
}
