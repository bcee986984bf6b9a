package heuristics

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDenylist(t *testing.T) {
	d := NewDenylist(DefaultSuspiciousTokens)

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"clean prose", "Quarterly revenue grew across every region we operate in.", false},
		{"token as word", "this is a test submission", true},
		{"token inside word", "our contest results are attached", true},
		{"uppercase token", "LOREM IPSUM placeholder", true},
		{"keyboard mash", "qwe ASDF zxc", true},
		{"triple x", "see section xxx for details", true},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, d.Suspicious(tc.text))
		})
	}
}

func TestDenylistCustomTokens(t *testing.T) {
	d := NewDenylist([]string{"", "Spam"})
	assert.Equal(t, []string{"spam"}, d.Tokens())
	assert.True(t, d.Suspicious("buy SPAMMY things"))
	assert.False(t, d.Suspicious("a test is fine here"))

	empty := NewDenylist(nil)
	assert.False(t, empty.Suspicious("asdf"))
}

func TestDenylistConcurrentUse(t *testing.T) {
	d := NewDenylist(DefaultSuspiciousTokens)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				assert.True(t, d.Suspicious("dummy text"))
			} else {
				assert.False(t, d.Suspicious("clean text"))
			}
		}(i)
	}
	wg.Wait()
}

func TestRepetition(t *testing.T) {
	r := NewRepetition(DefaultRepetitionPercent)

	cases := []struct {
		name string
		text string
		want bool
	}{
		{"three of seven", "test test test filler unrelated words here", true},
		{"case folded", "Alpha alpha ALPHA beta gamma delta epsilon", true},
		{"exactly thirty percent", "a a a b c d e f g h", false},
		{"just above thirty percent", "a a a a b c d e f g h i j", true},
		{"all distinct", "one two three four five six", false},
		{"single word", "hello", true},
		{"whitespace only", " \t\n ", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Repetitive(tc.text))
		})
	}
}

func TestMaxWordCount(t *testing.T) {
	assert.Equal(t, 0, MaxWordCount(nil))
	assert.Equal(t, 2, MaxWordCount(strings.Fields("x y x z y")))
}
