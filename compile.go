package logic

// The compiler turns every AST node into a pair of the set of variable
// names it mentions and an evaluator closure. The free-variable set of a
// clause is what gets a fresh environment on every invocation, so that
// sibling clauses and separate activations of the same clause never share
// variables.

type varset map[string]struct{}

func union(sets ...varset) varset {
	m := make(varset)
	for _, s := range sets {
		for name := range s {
			m[name] = struct{}{}
		}
	}
	return m
}

// env maps source-level variable names to the logic variables of one
// clause or query activation.
type env map[string]*Var

func freshEnv(vars varset) env {
	e := make(env, len(vars))
	for name := range vars {
		e[name] = NewVar(name)
	}
	return e
}

// compiledTerm evaluates one term template under an environment.
type compiledTerm struct {
	vars varset
	eval func(e env) Term
}

// compiledCall evaluates one predicate invocation into a goal. The callee
// is resolved and invoked only when the search driver forces the call.
type compiledCall struct {
	symbol string
	vars   varset
	eval   func(x *exec, e env) Goal
}

func compileTerm(node ASTExpr) compiledTerm {
	switch t := node.(type) {
	case *ASTVariable:
		name := t.Name
		return compiledTerm{
			vars: varset{name: {}},
			eval: func(e env) Term { return e[name] },
		}
	case *ASTAnon:
		name := t.Name
		// A new variable on every evaluation: occurrences of an
		// anonymous variable are independent even within one clause.
		return compiledTerm{
			eval: func(e env) Term { return NewVar(name) },
		}
	case *ASTInteger:
		val := Integer(t.Value)
		return compiledTerm{eval: func(e env) Term { return val }}
	case *ASTString:
		val := String(t.Value)
		return compiledTerm{eval: func(e env) Term { return val }}
	case *ASTList:
		elems := compileTerms(t.Elems)
		vars := make([]varset, len(elems))
		for i, el := range elems {
			vars[i] = el.vars
		}
		return compiledTerm{
			vars: union(vars...),
			eval: func(e env) Term {
				var list Term = Nil{}
				for i := len(elems) - 1; i >= 0; i-- {
					list = &Pair{Head: elems[i].eval(e), Tail: list}
				}
				return list
			},
		}
	case *ASTCompound:
		return compileCompound(t)
	default:
		panic("unexpected type of AST")
	}
}

// compileCompound maps the reserved constructors Nil and Cons onto the
// list representation and bare symbols onto atoms; everything else stays a
// compound term.
func compileCompound(t *ASTCompound) compiledTerm {
	if len(t.Args) == 0 {
		if t.Symbol == "Nil" {
			return compiledTerm{eval: func(e env) Term { return Nil{} }}
		}
		val := Atom(t.Symbol)
		return compiledTerm{eval: func(e env) Term { return val }}
	}
	args := compileTerms(t.Args)
	vars := make([]varset, len(args))
	for i, a := range args {
		vars[i] = a.vars
	}
	if t.Symbol == "Cons" && len(t.Args) == 2 {
		return compiledTerm{
			vars: union(vars...),
			eval: func(e env) Term {
				return &Pair{Head: args[0].eval(e), Tail: args[1].eval(e)}
			},
		}
	}
	symbol := t.Symbol
	return compiledTerm{
		vars: union(vars...),
		eval: func(e env) Term {
			vals := make([]Term, len(args))
			for i, a := range args {
				vals[i] = a.eval(e)
			}
			return &Compound{Functor: symbol, Args: vals}
		},
	}
}

func compileTerms(nodes []ASTExpr) []compiledTerm {
	terms := make([]compiledTerm, len(nodes))
	for i, node := range nodes {
		terms[i] = compileTerm(node)
	}
	return terms
}

func compileCall(c *ASTCall) compiledCall {
	symbol := c.Symbol
	args := compileTerms(c.Args)
	vars := make([]varset, len(args))
	for i, a := range args {
		vars[i] = a.vars
	}
	return compiledCall{
		symbol: symbol,
		vars:   union(vars...),
		eval: func(x *exec, e env) Goal {
			return Delay(func() Goal {
				rel := x.prog.relation(symbol)
				if rel == nil {
					panic("undefined relation " + symbol)
				}
				vals := make([]Term, len(args))
				for i, a := range args {
					vals[i] = a.eval(e)
				}
				return rel(x, vals)
			})
		},
	}
}

func compileCalls(calls []*ASTCall) []compiledCall {
	cc := make([]compiledCall, len(calls))
	for i, c := range calls {
		cc[i] = compileCall(c)
	}
	return cc
}

// conjoin folds calls into one conjunction, right to left, so that an
// empty sequence of calls always succeeds.
func conjoin(calls []compiledCall, x *exec, e env) Goal {
	g := Goal(Succeed)
	for i := len(calls) - 1; i >= 0; i-- {
		g = Both(calls[i].eval(x, e), g)
	}
	return g
}

// unifyHead unifies the call arguments against the evaluated head
// patterns. An arity mismatch simply fails.
func unifyHead(args []Term, head []compiledTerm, e env) Goal {
	if len(args) != len(head) {
		return Fail
	}
	g := Goal(Succeed)
	for i := len(head) - 1; i >= 0; i-- {
		g = Both(Unify(args[i], head[i].eval(e)), g)
	}
	return g
}

// clause is one fact or rule of a predicate.
type clause interface {
	// goal builds a fresh variable environment, unifies the call
	// arguments against the clause head and, on success, runs the body.
	goal(x *exec, args []Term) Goal
	// calledSymbols lists the predicate symbols the clause body calls.
	calledSymbols() []string
}

type fact struct {
	head []compiledTerm
	vars varset
}

func (f *fact) goal(x *exec, args []Term) Goal {
	return unifyHead(args, f.head, freshEnv(f.vars))
}

func (f *fact) calledSymbols() []string { return nil }

type rule struct {
	head []compiledTerm
	body []compiledCall
	vars varset
}

func (r *rule) goal(x *exec, args []Term) Goal {
	e := freshEnv(r.vars)
	return Both(unifyHead(args, r.head, e), conjoin(r.body, x, e))
}

func (r *rule) calledSymbols() []string {
	symbols := make([]string, len(r.body))
	for i, c := range r.body {
		symbols[i] = c.symbol
	}
	return symbols
}

// compileRule assembles a parsed fact or rule into a clause.
func compileRule(node *ASTRule) (string, clause) {
	head := compileTerms(node.Head.Args)
	vars := make([]varset, 0, len(head)+len(node.Body))
	for _, t := range head {
		vars = append(vars, t.vars)
	}
	if len(node.Body) == 0 {
		return node.Head.Symbol, &fact{head: head, vars: union(vars...)}
	}
	body := compileCalls(node.Body)
	for _, c := range body {
		vars = append(vars, c.vars)
	}
	return node.Head.Symbol, &rule{head: head, body: body, vars: union(vars...)}
}

// predicate is a named relation assembled from clauses in declaration
// order. Each invocation gives every clause its own fresh environment and
// combines the clauses via disjunction, so all clauses contribute
// solutions and failure in one never affects the next.
type predicate struct {
	symbol  string
	clauses []clause
}

func (p *predicate) relate(x *exec, args []Term) Goal {
	g := Goal(Fail)
	for i := len(p.clauses) - 1; i >= 0; i-- {
		g = Either(p.clauses[i].goal(x, args), g)
	}
	return g
}
