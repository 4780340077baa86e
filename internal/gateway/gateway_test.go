package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_MatchesAuthorAndChannel(t *testing.T) {
	f := Filter{AuthorID: "42", ChannelID: "dm-1"}

	assert.True(t, f.Matches(Message{AuthorID: "42", ChannelID: "dm-1", Content: "anything"}))
	assert.False(t, f.Matches(Message{AuthorID: "43", ChannelID: "dm-1"}))
	assert.False(t, f.Matches(Message{AuthorID: "42", ChannelID: "guild-chan"}))
}

func TestFilter_ContentsAreCaseInsensitive(t *testing.T) {
	f := Filter{AuthorID: "42", Contents: []string{"yes", "no"}}

	assert.True(t, f.Matches(Message{AuthorID: "42", Content: "YES"}))
	assert.True(t, f.Matches(Message{AuthorID: "42", Content: "  no  "}))
	assert.False(t, f.Matches(Message{AuthorID: "42", Content: "maybe"}))
	assert.False(t, f.Matches(Message{AuthorID: "42", Content: "yes please"}))
}

func TestFilter_EmptyContentsAcceptAnything(t *testing.T) {
	f := Filter{AuthorID: "42"}
	assert.True(t, f.Matches(Message{AuthorID: "42", Content: "whatever"}))
}

func TestFilter_ZeroFilterMatchesAll(t *testing.T) {
	assert.True(t, Filter{}.Matches(Message{AuthorID: "1", ChannelID: "2", Content: "x"}))
}
