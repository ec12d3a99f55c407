package ident

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInt64Serializer(t *testing.T) {
	s := Int64Serializer{}

	assert.Equal(t, "42", s.Serialize(42))
	assert.Equal(t, "-7", s.Serialize(-7))

	id, err := s.Deserialize("9000000000")
	require.NoError(t, err)
	assert.Equal(t, int64(9000000000), id)

	_, err = s.Deserialize("abc")
	assert.Error(t, err)
}

func TestIntSerializer(t *testing.T) {
	s := IntSerializer{}

	id, err := s.Deserialize(s.Serialize(1234))
	require.NoError(t, err)
	assert.Equal(t, 1234, id)

	_, err = s.Deserialize("")
	assert.Error(t, err)
}

func TestStringSerializer(t *testing.T) {
	s := StringSerializer{}

	id, err := s.Deserialize(s.Serialize("books"))
	require.NoError(t, err)
	assert.Equal(t, "books", id)
}

func TestUUIDSerializer(t *testing.T) {
	s := UUIDSerializer{}
	want := uuid.New()

	text := s.Serialize(want)
	assert.Len(t, text, 36)
	assert.NotContains(t, text, "|")

	got, err := s.Deserialize(text)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = s.Deserialize("not-a-uuid")
	assert.Error(t, err)
}

func TestIsUnset(t *testing.T) {
	assert.True(t, IsUnset(int64(0)))
	assert.False(t, IsUnset(int64(3)))
	assert.True(t, IsUnset(""))
	assert.False(t, IsUnset("a"))
	assert.True(t, IsUnset(uuid.Nil))
	assert.False(t, IsUnset(uuid.New()))
}
