// Package logic provides a small logic-programming language: facts and
// rules are compiled into an immutable program of callable relations which
// can be queried for variable bindings via unification and backtracking
// search.
//
// # Terms
//
// Several kinds of terms can appear in facts, rules and queries:
//   - atoms,
//   - strings,
//   - integers,
//   - compound terms,
//   - lists,
//   - variables.
//
// Lists are right-nested pairs of a head element and a tail list, ending in
// the empty list; the surface syntax [a, b, c] desugars to that shape, and
// the reserved constructors Cons and Nil spell it explicitly.
//
// # Unification
//
// The process of unification compares the structures of two terms and finds
// the most general substitution that makes them equal, in case one exists.
// For example, the following two lists can be unified using the given
// substitution:
//
//	[1, x], [y, 2]
//	x = 2, y = 1
//
// # Search
//
// A predicate with several clauses tries them in declaration order via
// disjunction; the calls of a rule body are joined by conjunction. Every
// call from a body to another predicate is suspended: the callee is not
// looked up or invoked until the search driver asks for its first result.
// This keeps recursive predicates productive, so that relations with
// infinitely many solutions can still be enumerated lazily up to any finite
// prefix.
package logic

import (
	"strconv"
)

// Subst is a persistent substitution mapping variables to terms. Binding
// extends the substitution without mutating it, so substitutions retained
// from earlier solutions never observe later bindings.
type Subst struct {
	v    *Var
	val  Term
	next *Subst
}

// EmptySubst returns the substitution binding nothing. It is a non-nil
// value: streams mark suspension steps with a nil *Subst, and a success
// that binds nothing must remain distinguishable from such a step.
func EmptySubst() *Subst { return &Subst{} }

func (s *Subst) bind(v *Var, val Term) *Subst {
	return &Subst{v: v, val: val, next: s}
}

func (s *Subst) lookup(v *Var) (Term, bool) {
	for e := s; e != nil; e = e.next {
		if e.v == v {
			return e.val, true
		}
	}
	return nil, false
}

// walk resolves t through variable bindings until it reaches an unbound
// variable or a non-variable term.
func (s *Subst) walk(t Term) Term {
	for {
		v, ok := t.(*Var)
		if !ok {
			return t
		}
		val, ok := s.lookup(v)
		if !ok {
			return t
		}
		t = val
	}
}

// Stream is a lazily evaluated sequence of substitutions. A nil Stream is
// exhausted. A step may carry a nil substitution; such steps are no-result
// sentinels marking a forced suspension and are filtered by the query
// executor. Substitutions carried by solutions are always non-nil, the
// empty one included (see EmptySubst).
type Stream func() (*Subst, Stream)

// Goal is a relation over substitutions: applied to a substitution it
// produces the stream of substitutions satisfying it.
type Goal func(*Subst) Stream

func single(s *Subst) Stream {
	return func() (*Subst, Stream) { return s, nil }
}

// Succeed is the goal that succeeds exactly once without binding anything.
// It is the identity of conjunction.
func Succeed(s *Subst) Stream { return single(s) }

// Fail is the goal that never succeeds. It is the identity of disjunction.
func Fail(*Subst) Stream { return nil }

// Delay defers the construction of a goal until the search driver forces
// it. Every cross-predicate call site is wrapped in a Delay, so a relation
// whose first clause recurses into itself still yields alternatives instead
// of unfolding forever.
func Delay(f func() Goal) Goal {
	return func(s *Subst) Stream {
		return func() (*Subst, Stream) {
			return nil, f()(s)
		}
	}
}

// Unify returns the goal that succeeds iff a and b can be made structurally
// equal, extending the substitution as needed.
func Unify(a, b Term) Goal {
	return func(s *Subst) Stream {
		s, ok := unify(a, b, s)
		if !ok {
			return nil
		}
		return single(s)
	}
}

func unify(a, b Term, s *Subst) (*Subst, bool) {
	a, b = s.walk(a), s.walk(b)
	if va, ok := a.(*Var); ok {
		if vb, ok := b.(*Var); ok && va == vb {
			return s, true
		}
		return s.bind(va, b), true
	}
	if vb, ok := b.(*Var); ok {
		return s.bind(vb, a), true
	}
	switch x := a.(type) {
	case Atom:
		if y, ok := b.(Atom); ok && x == y {
			return s, true
		}
	case String:
		if y, ok := b.(String); ok && x == y {
			return s, true
		}
	case Integer:
		if y, ok := b.(Integer); ok && x == y {
			return s, true
		}
	case Float:
		if y, ok := b.(Float); ok && x == y {
			return s, true
		}
	case Nil:
		if _, ok := b.(Nil); ok {
			return s, true
		}
	case *Pair:
		if y, ok := b.(*Pair); ok {
			s, ok := unify(x.Head, y.Head, s)
			if !ok {
				return nil, false
			}
			return unify(x.Tail, y.Tail, s)
		}
	case *Compound:
		if y, ok := b.(*Compound); ok && x.Functor == y.Functor && len(x.Args) == len(y.Args) {
			ok := true
			for i := range x.Args {
				if s, ok = unify(x.Args[i], y.Args[i], s); !ok {
					return nil, false
				}
			}
			return s, true
		}
	}
	return nil, false
}

// Both returns the conjunction of two goals: g2 runs on every substitution
// produced by g1.
func Both(g1, g2 Goal) Goal {
	return func(s *Subst) Stream {
		return streamBind(g1(s), g2)
	}
}

func streamBind(st Stream, g Goal) Stream {
	if st == nil {
		return nil
	}
	return func() (*Subst, Stream) {
		s, rest := st()
		if s == nil {
			return nil, streamBind(rest, g)
		}
		return nil, interleave(g(s), streamBind(rest, g))
	}
}

// Either returns the disjunction of two goals. Both succeeding paths
// contribute results; their streams are interleaved so that neither branch
// starves the other.
func Either(g1, g2 Goal) Goal {
	return func(s *Subst) Stream {
		return interleave(g1(s), g2(s))
	}
}

func interleave(a, b Stream) Stream {
	if a == nil {
		return b
	}
	return func() (*Subst, Stream) {
		s, rest := a()
		return s, interleave(b, rest)
	}
}

// RunGoal drives a goal from the given substitution, yielding every step of
// the resulting stream, in order. A fresh search starts from EmptySubst.
// Steps carrying a nil substitution are suspension sentinels; callers
// interested only in solutions must skip them.
func RunGoal(g Goal, s *Subst) func(yield func(*Subst) bool) {
	return func(yield func(*Subst) bool) {
		st := g(s)
		for st != nil {
			var s *Subst
			s, st = st()
			if !yield(s) {
				return
			}
		}
	}
}

// Reifier resolves terms against one substitution, assigning canonical
// names to variables that are still unresolved. Names are numbered in order
// of first appearance across all terms reified by the same Reifier.
type Reifier struct {
	s     *Subst
	names map[*Var]*Var
}

// NewReifier creates a reifier for the given substitution.
func NewReifier(s *Subst) *Reifier {
	return &Reifier{s: s, names: make(map[*Var]*Var)}
}

// Reify replaces every resolved variable in t, transitively, with its bound
// term and every unresolved one with a canonically named variable.
func (r *Reifier) Reify(t Term) Term {
	t = r.s.walk(t)
	switch x := t.(type) {
	case *Var:
		v, ok := r.names[x]
		if !ok {
			v = NewVar("_." + strconv.Itoa(len(r.names)))
			r.names[x] = v
		}
		return v
	case *Pair:
		return &Pair{Head: r.Reify(x.Head), Tail: r.Reify(x.Tail)}
	case *Compound:
		args := make([]Term, len(x.Args))
		for i, arg := range x.Args {
			args[i] = r.Reify(arg)
		}
		return &Compound{Functor: x.Functor, Args: args}
	default:
		return t
	}
}

