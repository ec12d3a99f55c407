// Package ident converts tree identifiers to and from the text stored inside
// materialized paths.
package ident

import (
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// Serializer maps an identifier type to its path token and back.
// Serialize and Deserialize must be inverses, and a serialized token must
// never contain the path delimiter.
type Serializer[ID comparable] interface {
	Serialize(id ID) string
	Deserialize(s string) (ID, error)
}

// IsUnset reports whether id is the zero value of its type, which marks an
// entity that has not been persisted yet.
func IsUnset[ID comparable](id ID) bool {
	var zero ID
	return id == zero
}

// Int64Serializer encodes int64 identifiers as decimal text
type Int64Serializer struct{}

func (Int64Serializer) Serialize(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (Int64Serializer) Deserialize(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid int64 identifier %q: %w", s, err)
	}
	return id, nil
}

// IntSerializer encodes int identifiers as decimal text
type IntSerializer struct{}

func (IntSerializer) Serialize(id int) string {
	return strconv.Itoa(id)
}

func (IntSerializer) Deserialize(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid int identifier %q: %w", s, err)
	}
	return id, nil
}

// StringSerializer stores string identifiers verbatim
type StringSerializer struct{}

func (StringSerializer) Serialize(id string) string {
	return id
}

func (StringSerializer) Deserialize(s string) (string, error) {
	return s, nil
}

// UUIDSerializer uses the canonical 36 character form
type UUIDSerializer struct{}

func (UUIDSerializer) Serialize(id uuid.UUID) string {
	return id.String()
}

func (UUIDSerializer) Deserialize(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid uuid identifier %q: %w", s, err)
	}
	return id, nil
}
