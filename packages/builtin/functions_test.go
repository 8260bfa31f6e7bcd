package builtin

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Call(t *testing.T) {
	r := NewRegistry()

	t.Run("unknown function", func(t *testing.T) {
		_, ok := r.Call("doesNotExist()")
		assert.False(t, ok)
	})

	t.Run("not a call", func(t *testing.T) {
		_, ok := r.Call("uuid")
		assert.False(t, ok)
	})

	t.Run("uuid", func(t *testing.T) {
		v, ok := r.Call("uuid()")
		require.True(t, ok)
		_, err := uuid.Parse(v.(string))
		assert.NoError(t, err)
	})

	t.Run("random within range", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			v, ok := r.Call("random(5, 7)")
			require.True(t, ok)
			n := v.(int)
			assert.GreaterOrEqual(t, n, 5)
			assert.LessOrEqual(t, n, 7)
		}
	})

	t.Run("randomInt is JSON safe", func(t *testing.T) {
		for i := 0; i < 50; i++ {
			v, ok := r.Call("randomInt()")
			require.True(t, ok)
			n := v.(int64)
			assert.GreaterOrEqual(t, n, int64(0))
			assert.LessOrEqual(t, n, int64(MaxSafeInteger))
		}
	})

	t.Run("randomInt with max", func(t *testing.T) {
		v, ok := r.Call("randomInt(3)")
		require.True(t, ok)
		assert.LessOrEqual(t, v.(int64), int64(3))
	})

	t.Run("randomString length", func(t *testing.T) {
		v, ok := r.Call("randomString(12)")
		require.True(t, ok)
		assert.Len(t, v.(string), 12)
	})

	t.Run("base64 with quoted arg", func(t *testing.T) {
		v, ok := r.Call(`base64("a,b")`)
		require.True(t, ok)
		assert.Equal(t, "YSxi", v)
	})
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	r.Register("answer", func(_ []string) any { return 42 })

	assert.True(t, r.Has("answer"))
	v, ok := r.Call("answer()")
	require.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestLorem(t *testing.T) {
	t.Run("sentence shape", func(t *testing.T) {
		s := LoremSentence()
		assert.True(t, strings.HasSuffix(s, "."))
		assert.Equal(t, strings.ToUpper(s[:1]), s[:1])
		words := strings.Fields(s)
		assert.GreaterOrEqual(t, len(words), 4)
		assert.LessOrEqual(t, len(words), 12)
	})

	t.Run("text has several sentences", func(t *testing.T) {
		text := LoremText()
		assert.GreaterOrEqual(t, strings.Count(text, "."), 2)
	})

	t.Run("words count", func(t *testing.T) {
		assert.Len(t, strings.Fields(LoremWords(5)), 5)
		assert.Equal(t, "", LoremWords(0))
	})
}

func TestParseArgs(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"1, 2", []string{"1", "2"}},
		{`"a, b", c`, []string{"a, b", "c"}},
		{`'x'`, []string{"x"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, parseArgs(tt.input), "input: %s", tt.input)
	}
}
