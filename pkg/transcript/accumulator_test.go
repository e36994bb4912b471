package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccumulator(t *testing.T) {
	t.Run("final text equals concatenation of tokens in arrival order", func(t *testing.T) {
		acc := NewAccumulator()
		tokens := []string{"Hel", "lo", " ", "wor", "ld"}
		for _, tok := range tokens {
			acc.Append(tok)
		}
		assert.Equal(t, "Hello world", acc.String())
	})

	t.Run("Append returns the new length", func(t *testing.T) {
		acc := NewAccumulator()
		assert.Equal(t, 5, acc.Append("Hello"))
		assert.Equal(t, 11, acc.Append(" there"))
		assert.Equal(t, 11, acc.Len())
	})

	t.Run("length is monotonic within a session", func(t *testing.T) {
		acc := NewAccumulator()
		prev := 0
		for _, tok := range []string{"a", "", "bc", "", "def"} {
			next := acc.Append(tok)
			assert.GreaterOrEqual(t, next, prev)
			prev = next
		}
	})

	t.Run("Reset starts a new session at zero", func(t *testing.T) {
		acc := NewAccumulator()
		acc.Append("partial answer")
		acc.Reset()
		assert.Equal(t, 0, acc.Len())
		assert.Equal(t, "", acc.String())
	})
}
