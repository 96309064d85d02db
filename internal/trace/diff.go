package trace

// Diff describes how two command sequences differ.
type Diff struct {
	// First is the index of the first differing command, or -1 when the
	// sequences are identical.
	First int `json:"first"`
	// A and B are the commands at First; nil past the end of a sequence.
	A *Command `json:"a,omitempty"`
	B *Command `json:"b,omitempty"`

	Mismatches int   `json:"mismatches"`
	StatsA     Stats `json:"stats_a"`
	StatsB     Stats `json:"stats_b"`
}

func (d Diff) Equal() bool {
	return d.First < 0
}

// Compare walks both sequences in lockstep. Commands past the end of the
// shorter sequence count as mismatches.
func Compare(a, b []Command) Diff {
	d := Diff{First: -1, StatsA: Summarize(a), StatsB: Summarize(b)}
	n := max(len(a), len(b))
	for i := range n {
		if i < len(a) && i < len(b) && a[i] == b[i] {
			continue
		}
		d.Mismatches++
		if d.First >= 0 {
			continue
		}
		d.First = i
		if i < len(a) {
			c := a[i]
			d.A = &c
		}
		if i < len(b) {
			c := b[i]
			d.B = &c
		}
	}
	return d
}
