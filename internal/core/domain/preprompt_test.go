package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindPreprompt(t *testing.T) {
	assert.Equal(t, "Teacher", FindPreprompt("teacher").Label)
	assert.Equal(t, "", FindPreprompt("none").Text)
	assert.Equal(t, DefaultPreprompt, FindPreprompt("unknown").Key)
	assert.Equal(t, DefaultPreprompt, FindPreprompt("").Key)
}

func TestPrepromptKeysUnique(t *testing.T) {
	seen := map[string]bool{}
	for _, p := range Preprompts {
		assert.False(t, seen[p.Key], p.Key)
		seen[p.Key] = true
	}
}
