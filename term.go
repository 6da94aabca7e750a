package logic

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
)

// Term is a runtime value of the rule language.
//
// The concrete kinds are atoms, string and numeric literals, compound
// terms, list pairs, the empty list and logic variables. Lists are
// right-nested pairs ending in the empty list; whether a term is a proper
// list is a derived property, see IsProperList.
type Term interface {
	fmt.Stringer

	isTerm()
}

// Var is a logic variable. Variables have identity: two variables with the
// same name are still distinct. A variable is unresolved until a
// substitution binds it.
type Var struct {
	name string
}

// NewVar creates a fresh variable. The name is only a display hint.
func NewVar(name string) *Var { return &Var{name: name} }

func (v *Var) isTerm() {}

func (v *Var) String() string { return cmp.Or(v.name, "?") }

// Atom is a bare symbol with no arguments.
type Atom string

func (a Atom) isTerm() {}

func (a Atom) String() string { return string(a) }

// String is a string literal.
type String string

func (s String) isTerm() {}

func (s String) String() string { return strconv.Quote(string(s)) }

// Integer is an integer literal.
type Integer int

func (i Integer) isTerm() {}

func (i Integer) String() string { return strconv.Itoa(int(i)) }

// Float is a float literal. The surface syntax has no float terms; floats
// enter the term universe through table-backed relations.
type Float float64

func (f Float) isTerm() {}

func (f Float) String() string { return strconv.FormatFloat(float64(f), 'f', -1, 64) }

// Nil is the empty list.
type Nil struct{}

func (n Nil) isTerm() {}

func (n Nil) String() string { return "[]" }

// Pair is the list constructor holding a head element and a tail list.
// In source text it is spelt with the reserved constructor Cons.
type Pair struct {
	Head Term
	Tail Term
}

func (p *Pair) isTerm() {}

func (p *Pair) String() string {
	if IsProperList(p) {
		elems, _ := ListElements(p)
		var sb strings.Builder
		sb.WriteRune('[')
		for i, x := range elems {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(x.String())
		}
		sb.WriteRune(']')
		return sb.String()
	}
	return fmt.Sprintf("(Cons %s %s)", p.Head, p.Tail)
}

// Compound is a symbol applied to argument terms. A compound with no
// arguments renders as the bare symbol.
type Compound struct {
	Functor string
	Args    []Term
}

func (t *Compound) isTerm() {}

func (t *Compound) String() string {
	if len(t.Args) == 0 {
		return t.Functor
	}
	var sb strings.Builder
	sb.WriteRune('(')
	sb.WriteString(t.Functor)
	for _, arg := range t.Args {
		sb.WriteRune(' ')
		sb.WriteString(arg.String())
	}
	sb.WriteRune(')')
	return sb.String()
}

// ListOf builds the list term holding the given elements.
func ListOf(elems ...Term) Term {
	return listFromSlice(elems, Nil{})
}

func listFromSlice(elems []Term, tail Term) Term {
	if len(elems) == 0 {
		return tail
	}
	return &Pair{Head: elems[0], Tail: listFromSlice(elems[1:], tail)}
}

// IsProperList reports whether the pair nesting of t reaches the empty
// list with no non-pair tail.
func IsProperList(t Term) bool {
	for {
		switch x := t.(type) {
		case Nil:
			return true
		case *Pair:
			t = x.Tail
		default:
			return false
		}
	}
}

// ListElements returns the elements of a proper list term.
func ListElements(t Term) ([]Term, error) {
	var elems []Term
	for {
		switch x := t.(type) {
		case Nil:
			return elems, nil
		case *Pair:
			elems = append(elems, x.Head)
			t = x.Tail
		default:
			return nil, fmt.Errorf("not a proper list: %s", t)
		}
	}
}
