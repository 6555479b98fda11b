package services

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoomIDGenerator(t *testing.T) {
	gen := NewRoomIDGenerator()
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		id := gen()
		require.Len(t, id, roomIDLength)
		for _, c := range id {
			assert.True(t, strings.ContainsRune(roomIDAlphabet, c), "unexpected character %q in %s", c, id)
		}
		assert.False(t, seen[id], "duplicate room id %s", id)
		seen[id] = true
	}
}

func TestNewMessageIDGenerator(t *testing.T) {
	gen := NewMessageIDGenerator()
	at := time.UnixMilli(1714564800123)

	first := gen(at)
	second := gen(at)

	prefix := strconv.FormatInt(at.UnixMilli(), 10)
	assert.True(t, strings.HasPrefix(first, prefix))
	assert.Len(t, first, len(prefix)+messageSuffixLength)
	assert.NotEqual(t, first, second)
}
