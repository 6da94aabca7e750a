package logic

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const memberProgram = `
	# the classic member-of relation
	Member x (Cons x _).
	Member x (Cons _ r) <- Member x r.
`

func solutionStrings(sols []Solution) []string {
	r := make([]string, len(sols))
	for i, sol := range sols {
		r[i] = sol.String()
	}
	return r
}

func TestMemberOfList(t *testing.T) {
	req := require.New(t)

	p, err := Load(memberProgram)
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `Member x [5, 7]`)
	req.NoError(err)
	req.Equal([]string{"x: 5", "x: 7"}, solutionStrings(sols))

	sols, err = p.QueryAll(context.Background(), `Member x [22, 137]`)
	req.NoError(err)
	req.Equal([]string{"x: 22", "x: 137"}, solutionStrings(sols))
}

func TestMemberOfEmptyList(t *testing.T) {
	req := require.New(t)

	p, err := Load(memberProgram)
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `Member q []`)
	req.NoError(err)
	req.Empty(sols)
}

func TestMemberExplicitCons(t *testing.T) {
	req := require.New(t)

	p, err := Load(memberProgram)
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `Member x (Cons 5 [])`)
	req.NoError(err)
	req.Equal([]string{"x: 5"}, solutionStrings(sols))
}

func TestMemberUnboundElement(t *testing.T) {
	req := require.New(t)

	p, err := Load(memberProgram)
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `Member x [a]`)
	req.NoError(err)
	req.Equal([]string{"a: _.0; x: _.0"}, solutionStrings(sols))
}

func TestMemberInfiniteList(t *testing.T) {
	req := require.New(t)

	p, err := Load(memberProgram)
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `Member x a`, WithLimit(3))
	req.NoError(err)
	req.Equal([]string{
		"a: (Cons _.0 _.1); x: _.0",
		"a: (Cons _.0 (Cons _.1 _.2)); x: _.0",
		"a: (Cons _.0 (Cons _.1 (Cons _.2 _.3))); x: _.0",
	}, solutionStrings(sols))
}

func TestConjunctionIntersection(t *testing.T) {
	req := require.New(t)

	p, err := Load(memberProgram)
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `Member x [5, 7], Member x [7, 8]`)
	req.NoError(err)
	req.Equal([]string{"x: 7"}, solutionStrings(sols))
}

func TestClauseOrder(t *testing.T) {
	req := require.New(t)

	p, err := Load(`
		Fruit Apple.
		Fruit Pear.
	`)
	req.NoError(err)
	sols, err := p.QueryAll(context.Background(), `Fruit f`)
	req.NoError(err)
	req.Equal([]string{"f: Apple", "f: Pear"}, solutionStrings(sols))

	p, err = Load(`
		Fruit Pear.
		Fruit Apple.
	`)
	req.NoError(err)
	sols, err = p.QueryAll(context.Background(), `Fruit f`)
	req.NoError(err)
	req.Equal([]string{"f: Pear", "f: Apple"}, solutionStrings(sols))
}

func TestGroundFactQuery(t *testing.T) {
	req := require.New(t)

	p, err := Load(`
		Fruit Apple.
		Fruit Pear.
	`)
	req.NoError(err)

	// A query with no variables succeeds once, with nothing to report.
	sols, err := p.QueryAll(context.Background(), `Fruit Apple`)
	req.NoError(err)
	req.Len(sols, 1)
	req.Empty(sols[0])

	sols, err = p.QueryAll(context.Background(), `Fruit Plum`)
	req.NoError(err)
	req.Empty(sols)
}

func TestZeroArityFact(t *testing.T) {
	req := require.New(t)

	p, err := Load(`Main.`)
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `Main`)
	req.NoError(err)
	req.Len(sols, 1)
	req.Empty(sols[0])
}

func TestQueryLimitZero(t *testing.T) {
	req := require.New(t)

	p, err := Load(`Fruit Apple.`)
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `Fruit f`, WithLimit(0))
	req.NoError(err)
	req.Empty(sols)
}

func TestExplicitVars(t *testing.T) {
	req := require.New(t)

	p, err := Load(memberProgram)
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `Member x [a]`, WithVars("x"))
	req.NoError(err)
	req.Equal([]string{"x: _.0"}, solutionStrings(sols))

	_, err = p.Query(context.Background(), `Member x [a]`, WithVars("z"))
	req.Error(err)
}

func TestQueryIsolation(t *testing.T) {
	req := require.New(t)

	p, err := Load(memberProgram)
	req.NoError(err)

	// Abandon a query after its first solution.
	seq, err := p.Query(context.Background(), `Member x a`)
	req.NoError(err)
	seq(func(Solution) bool { return false })

	// A later query must not observe any of its bindings.
	sols, err := p.QueryAll(context.Background(), `Member x [5, 7]`)
	req.NoError(err)
	req.Equal([]string{"x: 5", "x: 7"}, solutionStrings(sols))
}

func TestUndefinedRelationInQuery(t *testing.T) {
	req := require.New(t)

	p, err := Load(memberProgram)
	req.NoError(err)

	_, err = p.Query(context.Background(), `Ghost x`)
	req.ErrorIs(err, ErrUndefinedRelation)
}

func TestUndefinedRelationInBody(t *testing.T) {
	req := require.New(t)

	l := NewLoader()
	req.NoError(l.LoadString(`Foo x <- Bar x.`))
	_, err := l.Build()
	req.ErrorIs(err, ErrUndefinedRelation)
}

func TestRoundTripPrinting(t *testing.T) {
	req := require.New(t)

	p, err := Load(`Same x x.`)
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `Same v [1, "a", (Point 2 3), Apple, []]`)
	req.NoError(err)
	req.Len(sols, 1)
	printed := sols[0]["v"].String()
	req.Equal(`[1, "a", (Point 2 3), Apple, []]`, printed)

	sols2, err := p.QueryAll(context.Background(), fmt.Sprintf(`Same w %s`, printed))
	req.NoError(err)
	req.Len(sols2, 1)
	req.Equal(sols[0]["v"], sols2[0]["w"])
}

func TestAppend(t *testing.T) {
	req := require.New(t)

	p, err := Load(`
		Append [] ys ys.
		Append (Cons x xs) ys (Cons x zs) <- Append xs ys zs.
	`)
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `Append [1, 2] [3] zs`)
	req.NoError(err)
	req.Equal([]string{"zs: [1, 2, 3]"}, solutionStrings(sols))

	sols, err = p.QueryAll(context.Background(), `Append a b [1, 2]`)
	req.NoError(err)
	req.Equal([]string{
		"a: []; b: [1, 2]",
		"a: [1]; b: [2]",
		"a: [1, 2]; b: []",
	}, solutionStrings(sols))
}

func TestYAMLFacts(t *testing.T) {
	req := require.New(t)

	l := NewLoader()
	err := l.LoadYAML(strings.NewReader(`predicates:
- functor: User
  args:
  - u1
- functor: User
  args:
  - u2
- functor: User
  args:
  - u3
`))
	req.NoError(err)
	p, err := l.Build()
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `User u`)
	req.NoError(err)
	req.Equal([]string{`u: "u1"`, `u: "u2"`, `u: "u3"`}, solutionStrings(sols))
}

func TestSexprProgram(t *testing.T) {
	req := require.New(t)

	l := NewLoader()
	err := l.LoadSexpr(`(
		(# some comment)
		((Edge A B))
		((Edge B C))
		((Edge C D))
		((TwoEdges x y) (Edge x z) (Edge z y))
	)`)
	req.NoError(err)
	p, err := l.Build()
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `TwoEdges x y`)
	req.NoError(err)
	req.Equal([]string{"x: A; y: C", "x: B; y: D"}, solutionStrings(sols))
}

func TestNativeRelation(t *testing.T) {
	req := require.New(t)

	l := NewLoader()
	l.AddNative("Succ", func(ctx context.Context, args []Term) Goal {
		return func(s *Subst) Stream {
			if len(args) != 2 {
				panic("bad number of arguments in call of 'Succ'")
			}
			n, ok := s.walk(args[0]).(Integer)
			if !ok {
				return nil
			}
			return Unify(args[1], n+1)(s)
		}
	})
	req.NoError(l.LoadString(`Next x y <- Succ x y.`))
	p, err := l.Build()
	req.NoError(err)

	sols, err := p.QueryAll(context.Background(), `Next 5 y`)
	req.NoError(err)
	req.Equal([]string{"y: 6"}, solutionStrings(sols))
}
