package relsql

import "fmt"

// NameGen produces a strictly increasing sequence of unique identifiers
// for subquery aliases, generated columns and staging names.
//
// A NameGen is scoped to one rendering pass and is not safe for
// concurrent use; each independent render must create its own instance
// so aliases never collide across concurrent renders.
type NameGen struct {
	prefix string
	next   int
}

// NewNameGen creates a generator with the given prefix. An empty prefix
// defaults to "relq".
func NewNameGen(prefix string) *NameGen {
	if prefix == "" {
		prefix = "relq"
	}
	return &NameGen{prefix: prefix, next: 1}
}

// Next returns the next identifier in the sequence. Identifiers are
// never repeated within one generator's lifetime.
func (g *NameGen) Next() string {
	name := fmt.Sprintf("%s_%04d", g.prefix, g.next)
	g.next++
	return name
}
