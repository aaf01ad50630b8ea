package connection

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecentIDs(t *testing.T) {
	r := newRecentIDs(3)

	assert.True(t, r.add("a"))
	assert.False(t, r.add("a"))
	assert.True(t, r.add(""))
	assert.True(t, r.add(""), "messages without a sender id are never dropped")

	assert.True(t, r.add("b"))
	assert.True(t, r.add("c"))
	assert.True(t, r.add("d"), "evicts a")
	assert.Len(t, r.seen, 3)
	assert.True(t, r.add("a"))
	assert.False(t, r.add("d"))
}

func TestRecentIDs_StaysBounded(t *testing.T) {
	r := newRecentIDs(recentIDsSize)
	for i := range recentIDsSize * 4 {
		r.add(fmt.Sprintf("id-%d", i))
	}
	assert.Len(t, r.seen, recentIDsSize)
}
