package logic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/mailstepcz/sexpr"
	"gopkg.in/yaml.v3"
)

// ErrUndefinedRelation signifies a call to a predicate symbol absent from
// the program.
var ErrUndefinedRelation = errors.New("undefined relation")

// NativeRelation is a host-implemented relation. It receives the context
// of the running query and the evaluated call arguments.
type NativeRelation func(ctx context.Context, args []Term) Goal

// exec carries the resources of one query run to predicate call sites.
type exec struct {
	prog *Program
	ctx  context.Context
}

// Program is an immutable database of callable relations. It is built once
// by a Loader and may be queried any number of times; queries never
// interfere with each other.
type Program struct {
	preds   map[string]*predicate
	natives map[string]NativeRelation
}

func (p *Program) relation(symbol string) func(x *exec, args []Term) Goal {
	if pr, ok := p.preds[symbol]; ok {
		return pr.relate
	}
	if f, ok := p.natives[symbol]; ok {
		return func(x *exec, args []Term) Goal { return f(x.ctx, args) }
	}
	return nil
}

func (p *Program) defined(symbol string) bool {
	if _, ok := p.preds[symbol]; ok {
		return true
	}
	_, ok := p.natives[symbol]
	return ok
}

// Loader accumulates clauses and native relations and freezes them into a
// Program. A Loader is single-use and not safe for concurrent use.
type Loader struct {
	order   []string
	preds   map[string]*predicate
	natives map[string]NativeRelation
}

// NewLoader creates an empty loader.
func NewLoader() *Loader {
	return &Loader{
		preds:   make(map[string]*predicate),
		natives: make(map[string]NativeRelation),
	}
}

func (l *Loader) addClause(symbol string, c clause) {
	pr, ok := l.preds[symbol]
	if !ok {
		pr = &predicate{symbol: symbol}
		l.preds[symbol] = pr
		l.order = append(l.order, symbol)
	}
	pr.clauses = append(pr.clauses, c)
}

// LoadString loads facts and rules from program text.
func (l *Loader) LoadString(code string) error {
	rules, err := ParseProgram(code)
	if err != nil {
		return err
	}
	for _, r := range rules {
		l.addClause(compileRule(r))
	}
	return nil
}

type yamlSource struct {
	Predicates []yamlPredicate `yaml:"predicates"`
}

type yamlPredicate struct {
	Functor string   `yaml:"functor"`
	Args    []string `yaml:"args"`
}

// LoadYAML loads a set of ground facts from a YAML reader. Arguments are
// carried as string literals.
func (l *Loader) LoadYAML(r io.Reader) error {
	var source yamlSource
	if err := yaml.NewDecoder(r).Decode(&source); err != nil {
		return err
	}
	for _, pred := range source.Predicates {
		if !symbolIsUpper(pred.Functor) {
			return fmt.Errorf("%w: predicate symbol '%s' must be capitalized", ErrIllFormed, pred.Functor)
		}
		head := make([]compiledTerm, len(pred.Args))
		for i, arg := range pred.Args {
			val := String(arg)
			head[i] = compiledTerm{eval: func(e env) Term { return val }}
		}
		l.addClause(pred.Functor, &fact{head: head})
	}
	return nil
}

// LoadSexpr loads clauses from a symbolic expression. Every clause is a
// list whose first element is the head and whose remaining elements are
// the body calls; entries starting with a bare identifier are skipped as
// comments.
func (l *Loader) LoadSexpr(code string) error {
	expr, err := sexpr.Parse(code)
	if err != nil {
		return err
	}
	for _, cl := range expr {
		cl, ok := cl.([]interface{})
		if !ok {
			return ErrIllFormed
		}
		if len(cl) == 0 {
			return ErrIllFormed
		}
		if _, ok := cl[0].(sexpr.Identifier); ok {
			continue
		}
		ex, ok := cl[0].([]interface{})
		if !ok {
			return ErrIllFormed
		}
		head, err := exprToCall(ex)
		if err != nil {
			return err
		}
		body := make([]*ASTCall, 0, len(cl)-1)
		for _, ex := range cl[1:] {
			ex, ok := ex.([]interface{})
			if !ok {
				return ErrIllFormed
			}
			c, err := exprToCall(ex)
			if err != nil {
				return err
			}
			body = append(body, c)
		}
		node := &ASTRule{Head: head, Body: body}
		if err := checkCalls(append([]*ASTCall{head}, body...)); err != nil {
			return err
		}
		l.addClause(compileRule(node))
	}
	return nil
}

func exprToCall(expr []interface{}) (*ASTCall, error) {
	if len(expr) == 0 {
		return nil, ErrIllFormed
	}
	functor, ok := expr[0].(sexpr.Identifier)
	if !ok {
		return nil, ErrIllFormed
	}
	args := make([]ASTExpr, 0, len(expr)-1)
	for _, arg := range expr[1:] {
		node, err := exprToNode(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, node)
	}
	return &ASTCall{Symbol: string(functor), Args: args}, nil
}

func exprToNode(arg interface{}) (ASTExpr, error) {
	switch x := arg.(type) {
	case sexpr.Identifier:
		if n, err := strconv.Atoi(string(x)); err == nil {
			return &ASTInteger{Value: n}, nil
		}
		return identExpr(string(x)), nil
	case sexpr.QuotedString:
		return &ASTString{Value: string(x)}, nil
	case []interface{}:
		c, err := exprToCall(x)
		if err != nil {
			return nil, err
		}
		return &ASTCompound{Symbol: c.Symbol, Args: c.Args}, nil
	default:
		return nil, ErrIllFormed
	}
}

// AddNative registers a host-implemented relation under the given symbol.
func (l *Loader) AddNative(symbol string, rel NativeRelation) {
	l.natives[symbol] = rel
}

// Build freezes the loaded clauses into a Program. Every predicate symbol
// called from a rule body must be defined.
func (l *Loader) Build() (*Program, error) {
	p := &Program{preds: l.preds, natives: l.natives}
	for _, symbol := range l.order {
		for _, c := range l.preds[symbol].clauses {
			for _, called := range c.calledSymbols() {
				if !p.defined(called) {
					return nil, fmt.Errorf("%w: '%s' called from '%s'", ErrUndefinedRelation, called, symbol)
				}
			}
		}
	}
	return p, nil
}

// Load builds a Program from program text alone.
func Load(code string) (*Program, error) {
	l := NewLoader()
	if err := l.LoadString(code); err != nil {
		return nil, err
	}
	return l.Build()
}

// Solution maps query variable names to their reified values.
type Solution map[string]Term

func (s Solution) String() string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for i, name := range names {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(name)
		sb.WriteString(": ")
		sb.WriteString(s[name].String())
	}
	return sb.String()
}

type queryOpts struct {
	vars  []string
	limit int
}

// QueryOption configures a query.
type QueryOption func(*queryOpts)

// WithVars selects the variable names reported in solutions; the default
// is every free variable of the query.
func WithVars(names ...string) QueryOption {
	return func(o *queryOpts) { o.vars = names }
}

// WithLimit truncates the solution sequence after n solutions. Search
// beyond the last reported solution is never performed.
func WithLimit(n int) QueryOption {
	return func(o *queryOpts) { o.limit = n }
}

// Query compiles query text and returns the lazy sequence of its
// solutions. Nothing is computed beyond what the consumer of the sequence
// asks for; abandoning the sequence abandons the search.
func (p *Program) Query(ctx context.Context, code string, opts ...QueryOption) (func(yield func(Solution) bool), error) {
	o := queryOpts{limit: -1}
	for _, opt := range opts {
		opt(&o)
	}
	calls, err := ParseQuery(code)
	if err != nil {
		return nil, err
	}
	cc := compileCalls(calls)
	vars := make([]varset, len(cc))
	for i, c := range cc {
		if !p.defined(c.symbol) {
			return nil, fmt.Errorf("%w: '%s'", ErrUndefinedRelation, c.symbol)
		}
		vars[i] = c.vars
	}
	fvs := union(vars...)
	names := o.vars
	if names == nil {
		names = make([]string, 0, len(fvs))
		for name := range fvs {
			names = append(names, name)
		}
		sort.Strings(names)
	} else {
		for _, name := range names {
			if _, ok := fvs[name]; !ok {
				return nil, fmt.Errorf("unknown variable '%s' in query", name)
			}
		}
	}
	return func(yield func(Solution) bool) {
		if o.limit == 0 {
			return
		}
		e := freshEnv(fvs)
		g := conjoin(cc, &exec{prog: p, ctx: ctx}, e)
		n := 0
		for s := range RunGoal(g, EmptySubst()) {
			if s == nil {
				// Suspension sentinel, not a solution.
				continue
			}
			sol := make(Solution, len(names))
			for _, name := range names {
				sol[name] = NewReifier(s).Reify(e[name])
			}
			if !yield(sol) {
				return
			}
			n++
			if o.limit >= 0 && n >= o.limit {
				return
			}
		}
	}, nil
}

// QueryAll runs a query and collects its solutions eagerly. Use a limit
// when querying relations with infinitely many solutions.
func (p *Program) QueryAll(ctx context.Context, code string, opts ...QueryOption) ([]Solution, error) {
	seq, err := p.Query(ctx, code, opts...)
	if err != nil {
		return nil, err
	}
	var solutions []Solution
	for sol := range seq {
		solutions = append(solutions, sol)
	}
	return solutions, nil
}
