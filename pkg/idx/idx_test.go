package idx_test

import (
	"testing"

	"github.com/halcyonlabs/keywarden/pkg/idx"
	"github.com/stretchr/testify/require"
)

func TestNewAndParse(t *testing.T) {
	id := idx.New()

	require.Len(t, id.String(), idx.Length)
	require.False(t, id.IsZero())

	// Parse a newly generated string
	parsed, err := idx.Parse(id.String())
	require.NoError(t, err)
	require.Equal(t, id, parsed)
}

func TestParseRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"short",
		"01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZVXXXXXX",   // not hex
		"ABCDEF00112233445566778899AABBCC",   // uppercase
		"abcdef00112233445566778899aabbcc0",  // 33 chars
	}
	for _, c := range cases {
		_, err := idx.Parse(c)
		require.ErrorIs(t, err, idx.ErrInvalid, "input %q", c)
	}
}

func TestMustParse(t *testing.T) {
	// This will panic if it fails, which is the assurance we want here
	id := idx.MustParse("abcdef00112233445566778899aabbcc")
	require.Equal(t, "abcdef00112233445566778899aabbcc", id.String())
}

func TestEventIDsSortable(t *testing.T) {
	a := idx.NewEventID()
	b := idx.NewEventID()

	require.Len(t, a, 26)
	require.Less(t, a, b)
}
