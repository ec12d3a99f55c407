package pathcodec

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammiranda/treepath/ident"
)

func TestFormat(t *testing.T) {
	codec := New[int64](ident.Int64Serializer{})

	testCases := []struct {
		name     string
		ids      []int64
		expected string
	}{
		{name: "Empty", ids: nil, expected: ""},
		{name: "Single", ids: []int64{1}, expected: "|1|"},
		{name: "Two levels", ids: []int64{1, 4}, expected: "|1|4|"},
		{name: "Deep", ids: []int64{1, 2, 5, 9}, expected: "|1|2|5|9|"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, codec.Format(tc.ids))
		})
	}
}

func TestParse(t *testing.T) {
	codec := New[int64](ident.Int64Serializer{})

	testCases := []struct {
		name     string
		path     string
		expected []int64
	}{
		{name: "Empty", path: "", expected: []int64{}},
		{name: "Delimiter only", path: "|", expected: []int64{}},
		{name: "Doubled delimiter", path: "||", expected: []int64{}},
		{name: "Single", path: "|7|", expected: []int64{7}},
		{name: "Multiple", path: "|1|2|5|", expected: []int64{1, 2, 5}},
		{name: "Missing outer delimiters", path: "1|2", expected: []int64{1, 2}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ids, err := codec.Parse(tc.path)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, ids)
		})
	}
}

func TestParseInvalidToken(t *testing.T) {
	codec := New[int64](ident.Int64Serializer{})

	_, err := codec.Parse("|1|x|")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "|1|x|")
}

func TestRoundTrip(t *testing.T) {
	intCodec := New[int64](ident.Int64Serializer{})
	for _, ids := range [][]int64{{}, {1}, {10, 1}, {1, 11, 111, 1111}} {
		parsed, err := intCodec.Parse(intCodec.Format(ids))
		require.NoError(t, err)
		assert.Equal(t, ids, parsed)
	}

	for _, path := range []string{"", "|3|", "|1|4|5|9|"} {
		ids, err := intCodec.Parse(path)
		require.NoError(t, err)
		assert.Equal(t, path, intCodec.Format(ids))
	}

	uuidCodec := New[uuid.UUID](ident.UUIDSerializer{})
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	parsed, err := uuidCodec.Parse(uuidCodec.Format(ids))
	require.NoError(t, err)
	assert.Equal(t, ids, parsed)

	stringCodec := New[string](ident.StringSerializer{})
	names := []string{"electronics", "phones", "android"}
	assert.Equal(t, "|electronics|phones|android|", stringCodec.Format(names))
	parsedNames, err := stringCodec.Parse(stringCodec.Format(names))
	require.NoError(t, err)
	assert.Equal(t, names, parsedNames)
}

func TestChild(t *testing.T) {
	codec := New[int64](ident.Int64Serializer{})

	assert.Equal(t, "|1|", codec.Child("", 1))
	assert.Equal(t, "|1|", codec.Child("|", 1))
	assert.Equal(t, "|1|4|", codec.Child("|1|", 4))

	path, err := codec.Parse("|1|2|")
	require.NoError(t, err)
	assert.Equal(t, codec.Format(append(path, 5)), codec.Child("|1|2|", 5))
}

func TestDepth(t *testing.T) {
	assert.Equal(t, 0, Depth(""))
	assert.Equal(t, 0, Depth("|"))
	assert.Equal(t, 1, Depth("|1|"))
	assert.Equal(t, 4, Depth("|1|2|5|9|"))
}
