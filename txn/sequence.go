package txn

import "github.com/pithecene-io/holonet/types"

// sequencer accepts pages strictly in order starting at 1.
type sequencer struct {
	accepted int
}

// offer reports whether f is the next expected page and, if so,
// whether it is the last one.
func (q *sequencer) offer(f *types.Fragment) (accepted, last bool) {
	if f.Page != q.accepted+1 {
		return false, false
	}
	q.accepted++
	return true, f.Page == f.ResultCount
}
