package chatstream

import (
	"unicode"
	"unicode/utf8"
)

const (
	// overlapWindow bounds, in bytes, how far back a duplicated run is searched.
	overlapWindow = 256

	// minDuplicateRun is the shortest run, in runes, treated as a duplicate.
	minDuplicateRun = 3
)

// Reconcile merges delta into previous. previous is always a prefix of the
// result. When the head of delta repeats the tail of previous as a
// retransmitted word fragment (for example "Hello wor" + "world!"), the
// repeated part is dropped before appending. Only the seam between previous
// and delta is examined; text already inside previous or delta is kept as is.
func Reconcile(previous, delta string) string {
	if delta == "" {
		return previous
	}
	if previous == "" {
		return delta
	}
	if k := overlapLen(previous, delta); k > 0 {
		delta = delta[k:]
	}
	return previous + delta
}

// CollapseDuplicates removes retransmitted word fragments from s, the naive
// concatenation of a delta sequence. seams are the byte offsets in s where
// each delta after the first begins; offsets that are out of order, out of
// range or inside a rune are ignored. Duplicates are only removed at seams,
// so the result equals folding Reconcile over the deltas and
// CollapseDuplicates(s, nil) is s.
func CollapseDuplicates(s string, seams []int) string {
	out := ""
	from := 0
	for _, seam := range seams {
		if seam <= from || seam >= len(s) || !utf8.RuneStart(s[seam]) {
			continue
		}
		out = Reconcile(out, s[from:seam])
		from = seam
	}
	return Reconcile(out, s[from:])
}

// overlapLen returns the byte length of the longest duplicated run that ends
// previous and starts delta, or 0.
func overlapLen(previous, delta string) int {
	maxK := min(len(previous), len(delta)-1, overlapWindow)
	for k := maxK; k > 0; k-- {
		start := len(previous) - k
		if !utf8.RuneStart(previous[start]) || !utf8.RuneStart(delta[k]) {
			continue
		}
		run := delta[:k]
		if previous[start:] != run {
			continue
		}
		if isDuplicateRun(previous, start, run, delta[k:]) {
			return k
		}
	}
	return 0
}

// isDuplicateRun reports whether run, found at start in text and followed by
// rest, looks like a retransmitted word fragment. The run must start a word,
// hold at least minDuplicateRun letters and nothing else, and continue into
// the rest of the same word. Digits never qualify, so "123" + "123456" is
// kept whole, and neither do natural repeats such as "very" + "very good".
func isDuplicateRun(text string, start int, run, rest string) bool {
	if utf8.RuneCountInString(run) < minDuplicateRun {
		return false
	}
	if !atWordStart(text, start) {
		return false
	}
	for _, r := range run {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	next, _ := utf8.DecodeRuneInString(rest)
	return isWordRune(next)
}

func atWordStart(s string, i int) bool {
	if i == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(prev)
}

func isWordRune(r rune) bool {
	return r != utf8.RuneError && (unicode.IsLetter(r) || unicode.IsDigit(r))
}
