package hasher

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDESHashShape(t *testing.T) {
	h := NewDES()
	out, err := h.Hash("PASS1234", "ab")
	require.NoError(t, err)
	assert.Len(t, out, CiphertextLength)
	assert.Equal(t, "ab", out[:SaltLength])
}

func TestDESHashDeterministic(t *testing.T) {
	h := NewDES()
	first, err := h.Hash("hello", "./")
	require.NoError(t, err)
	second, err := h.Hash("hello", "./")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	other, err := h.Hash("hello", "zz")
	require.NoError(t, err)
	assert.NotEqual(t, first, other)
}

func TestDESHashIgnoresBytesPastEight(t *testing.T) {
	h := NewDES()
	long, err := h.Hash("abcdefghXYZ", "ab")
	require.NoError(t, err)
	short, err := h.Hash("abcdefgh", "ab")
	require.NoError(t, err)
	assert.Equal(t, short, long)
}

func TestDESHashConcurrent(t *testing.T) {
	h := NewDES()
	want, err := h.Hash("secret", "xy")
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]string, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = h.Hash("secret", "xy")
		}(i)
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestValidSalt(t *testing.T) {
	for _, s := range []string{"ab", "AZ", "09", "./", "a."} {
		assert.True(t, ValidSalt(s), s)
	}
	for _, s := range []string{"", "a", "abc", "a-", "a ", "é"} {
		assert.False(t, ValidSalt(s), s)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc"))
	assert.Equal(t, "abcdefgh", Truncate("abcdefgh"))
	assert.Equal(t, "abcdefgh", Truncate("abcdefghijk"))
}
