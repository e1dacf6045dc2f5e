package variability

import (
	"sort"

	"github.com/logflow/logvar/internal/model"
)

// Similarity returns the longest-matching-block ratio of two sequences:
// twice the total length of the matched blocks divided by len(a)+len(b).
//
// Blocks are found by repeatedly taking the longest common contiguous run
// (earliest in a, then earliest in b on ties) and recursing on the parts
// before and after it. Two empty sequences are identical and score 1.0.
//
// The pair is put in a canonical order before matching, so the result does
// not depend on argument order even where tie-breaking would.
func Similarity(a, b model.Sequence) float64 {
	if len(a)+len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	abc := newAlphabet([]model.Sequence{a, b})
	ea, eb := abc.encode(a), abc.encode(b)
	if compareCodes(ea, eb) > 0 {
		ea, eb = eb, ea
	}

	m := newMatcher(abc.size())
	m.setB(eb)
	return m.ratio(ea)
}

// alphabet interns activity labels as dense integer codes. Codes follow the
// lexical order of the labels, so comparing encoded sequences orders them
// the same way as comparing the labels.
type alphabet struct {
	codes map[string]int32
}

func newAlphabet(seqs []model.Sequence) *alphabet {
	seen := make(map[string]struct{})
	for _, seq := range seqs {
		for _, label := range seq {
			seen[label] = struct{}{}
		}
	}
	labels := make([]string, 0, len(seen))
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	codes := make(map[string]int32, len(labels))
	for i, label := range labels {
		codes[label] = int32(i)
	}
	return &alphabet{codes: codes}
}

func (a *alphabet) size() int {
	return len(a.codes)
}

func (a *alphabet) encode(seq model.Sequence) []int32 {
	out := make([]int32, len(seq))
	for i, label := range seq {
		out[i] = a.codes[label]
	}
	return out
}

// compareCodes orders encoded sequences lexicographically; a proper prefix
// sorts first.
func compareCodes(a, b []int32) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		switch {
		case a[i] < b[i]:
			return -1
		case a[i] > b[i]:
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

type span struct {
	alo, ahi, blo, bhi int
}

// matcher finds matching blocks between many a sequences and one fixed b.
// The position index of b and the run-length scratch buffers are reused
// across calls; a matcher must not be shared between goroutines.
type matcher struct {
	b   []int32
	b2j [][]int

	// prev[j+1] holds the length of the run ending at the previous a
	// element and b[j]. Both buffers are all zero between calls.
	prev, cur               []int
	prevTouched, curTouched []int

	stack []span
}

func newMatcher(alphabetSize int) *matcher {
	return &matcher{b2j: make([][]int, alphabetSize)}
}

// setB indexes b. Earlier indexes are cleared first.
func (m *matcher) setB(b []int32) {
	for _, sym := range m.b {
		m.b2j[sym] = m.b2j[sym][:0]
	}
	m.b = b
	for j, sym := range b {
		m.b2j[sym] = append(m.b2j[sym], j)
	}
	if need := len(b) + 1; cap(m.prev) < need {
		m.prev = make([]int, need)
		m.cur = make([]int, need)
	} else {
		m.prev = m.prev[:need]
		m.cur = m.cur[:need]
	}
}

// ratio returns 2*M/(len(a)+len(b)) where M is the matched-block total.
func (m *matcher) ratio(a []int32) float64 {
	total := len(a) + len(m.b)
	if total == 0 {
		return 1.0
	}
	return 2.0 * float64(m.matches(a)) / float64(total)
}

// matches returns the total length of all matching blocks between a and b.
func (m *matcher) matches(a []int32) int {
	matched := 0
	m.stack = append(m.stack[:0], span{0, len(a), 0, len(m.b)})
	for len(m.stack) > 0 {
		s := m.stack[len(m.stack)-1]
		m.stack = m.stack[:len(m.stack)-1]

		i, j, k := m.longest(a, s)
		if k == 0 {
			continue
		}
		matched += k
		if s.alo < i && s.blo < j {
			m.stack = append(m.stack, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			m.stack = append(m.stack, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	return matched
}

// longest finds the longest block a[i:i+k] == b[j:j+k] inside s. Among
// blocks of maximal size it returns the one that starts earliest in a, and
// of those the one that starts earliest in b.
func (m *matcher) longest(a []int32, s span) (besti, bestj, bestk int) {
	besti, bestj = s.alo, s.blo
	prev, cur := m.prev, m.cur
	prevTouched, curTouched := m.prevTouched[:0], m.curTouched[:0]

	for i := s.alo; i < s.ahi; i++ {
		for _, j := range m.b2j[a[i]] {
			if j < s.blo {
				continue
			}
			if j >= s.bhi {
				break
			}
			k := prev[j] + 1
			cur[j+1] = k
			curTouched = append(curTouched, j+1)
			if k > bestk {
				besti, bestj, bestk = i-k+1, j-k+1, k
			}
		}
		for _, t := range prevTouched {
			prev[t] = 0
		}
		prev, cur = cur, prev
		prevTouched, curTouched = curTouched, prevTouched[:0]
	}
	for _, t := range prevTouched {
		prev[t] = 0
	}

	m.prev, m.cur = prev, cur
	m.prevTouched, m.curTouched = prevTouched[:0], curTouched[:0]
	return besti, bestj, bestk
}
