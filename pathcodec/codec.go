// Package pathcodec encodes the chain of ancestor identifiers of a tree node
// as a delimited string, e.g. "|1|4|" for a node whose root is 1 and whose
// parent is 4. Roots have the empty path.
package pathcodec

import (
	"fmt"
	"strings"

	"github.com/ammiranda/treepath/ident"
)

// Delimiter separates identifiers inside a path
const Delimiter = "|"

// Codec converts between path strings and identifier sequences
type Codec[ID comparable] struct {
	serializer ident.Serializer[ID]
}

// New creates a codec using the given identifier serializer
func New[ID comparable](serializer ident.Serializer[ID]) Codec[ID] {
	return Codec[ID]{serializer: serializer}
}

// Parse splits a path into its identifiers, root first. Empty tokens are
// skipped, so "" and "|" both parse to an empty sequence.
func (c Codec[ID]) Parse(path string) ([]ID, error) {
	tokens := tokenize(path)
	ids := make([]ID, 0, len(tokens))
	for _, token := range tokens {
		id, err := c.serializer.Deserialize(token)
		if err != nil {
			return nil, fmt.Errorf("parse path %q: %w", path, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Format joins identifiers into a path
func (c Codec[ID]) Format(ids []ID) string {
	if len(ids) == 0 {
		return ""
	}
	var b strings.Builder
	for _, id := range ids {
		b.WriteString(Delimiter)
		b.WriteString(c.serializer.Serialize(id))
	}
	b.WriteString(Delimiter)
	return b.String()
}

// Child returns the path of a direct child of the node with the given path
// and id. It is also the prefix shared by every descendant of that node.
func (c Codec[ID]) Child(path string, id ID) string {
	token := c.serializer.Serialize(id)
	if len(tokenize(path)) == 0 {
		return Delimiter + token + Delimiter
	}
	return path + token + Delimiter
}

// Depth counts the identifiers in a path without deserializing them
func Depth(path string) int {
	return len(tokenize(path))
}

func tokenize(path string) []string {
	return strings.FieldsFunc(path, func(r rune) bool {
		return string(r) == Delimiter
	})
}
