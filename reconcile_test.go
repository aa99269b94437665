package chatstream_test

import (
	"strings"
	"testing"

	"github.com/pratikoai/chatstream"
	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		previous string
		delta    string
		want     string
	}{
		{"empty previous takes delta", "", "Hel", "Hel"},
		{"empty delta keeps previous", "Hello", "", "Hello"},
		{"plain append", "Hel", "lo wo", "Hello wo"},
		{"append across word", "Hello wo", "rld!", "Hello world!"},
		{"retransmitted fragment is trimmed", "Hello wor", "world!", "Hello world!"},
		{"natural repeat is kept", "very", " very", "very very"},
		{"repeat followed by space is kept", "I said very", "very good", "I said veryvery good"},
		{"short overlap is kept", "ab", "abc", "ababc"},
		{"multibyte fragment", "Grüße wel", "welt", "Grüße welt"},
		{"single rune overlap is kept", "Hel", "lo", "Hello"},
		{"fragment restated before a longer word", "The bar", "barbarian", "The barbarian"},
		{"word split inside a repeat", "The barb", "arian", "The barbarian"},
		{"reduplicated word split mid-run", "It murm", "ured", "It murmured"},
		{"digits are never trimmed", "Order 123", "123456", "Order 123123456"},
		{"repeated digits are never trimmed", "Call 555", "555123", "Call 555555123"},
		{"run with a digit is kept", "id ab1", "ab1c", "id ab1ab1c"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, chatstream.Reconcile(tt.previous, tt.delta))
		})
	}
}

func TestReconcile_PreviousIsPrefix(t *testing.T) {
	t.Parallel()
	deltas := []string{"Hel", "lo wo", "rld", "world", "! ", "wo", "wonder", "", "ful ful", "fully"}
	content := ""
	for _, d := range deltas {
		next := chatstream.Reconcile(content, d)
		assert.True(t, strings.HasPrefix(next, content), "%q is not a prefix of %q", content, next)
		content = next
	}
}

func TestReconcile_DeltaSequence(t *testing.T) {
	t.Parallel()
	content := ""
	for _, d := range []string{"Hel", "lo wo", "rld!"} {
		content = chatstream.Reconcile(content, d)
	}
	assert.Equal(t, "Hello world!", content)
}

func TestCollapseDuplicates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		deltas []string
		want   string
	}{
		{"empty", nil, ""},
		{"retransmitted fragment at a seam", []string{"Hello wor", "world!"}, "Hello world!"},
		{"glued text inside one delta is kept", []string{"Hello worworld!"}, "Hello worworld!"},
		{"words inside one delta are kept", []string{"The barbarian murmured"}, "The barbarian murmured"},
		{"digits inside one delta are kept", []string{"Order 123123456, call 555555123"}, "Order 123123456, call 555555123"},
		{"digits at a seam are kept", []string{"Order 123", "123456"}, "Order 123123456"},
		{"fragment restated before a longer word", []string{"The bar", "barbarian"}, "The barbarian"},
		{"natural repeat", []string{"very", " very good"}, "very very good"},
		{"many deltas", []string{"Hel", "lo wor", "world", "! ", "won", "", "wonder", "ful"}, "Hello world! wonderful"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			naive, seams := join(tt.deltas...)
			got := chatstream.CollapseDuplicates(naive, seams)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, fold(tt.deltas...), got)
			assert.Equal(t, got, chatstream.CollapseDuplicates(got, nil))
		})
	}
}

func TestCollapseDuplicates_InvalidSeams(t *testing.T) {
	t.Parallel()
	got := chatstream.CollapseDuplicates("Hello worworld!", []int{9, 3, 9, 100, -1})
	assert.Equal(t, "Hello world!", got)

	got = chatstream.CollapseDuplicates("Grüße", []int{3})
	assert.Equal(t, "Grüße", got)
}

// join returns the naive concatenation of deltas and the offsets where each
// delta after the first begins.
func join(deltas ...string) (string, []int) {
	var b strings.Builder
	var seams []int
	for i, d := range deltas {
		if i > 0 {
			seams = append(seams, b.Len())
		}
		b.WriteString(d)
	}
	return b.String(), seams
}

func fold(deltas ...string) string {
	content := ""
	for _, d := range deltas {
		content = chatstream.Reconcile(content, d)
	}
	return content
}
