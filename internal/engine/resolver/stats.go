package resolver

import "sort"

// Strategy names the resolution step that produced an edge.
type Strategy string

const (
	StrategyExact    Strategy = "exact"
	StrategySameFile Strategy = "same_file"
	StrategyImport   Strategy = "import"
	StrategyGeneric  Strategy = "generic_strip"
	StrategyTrait    Strategy = "trait_dispatch"
)

// Strategies lists every strategy in the order the chain tries them.
var Strategies = []Strategy{StrategyExact, StrategySameFile, StrategyImport, StrategyGeneric, StrategyTrait}

// DropReason explains why a call produced no edge.
type DropReason string

const (
	DropNoCandidate DropReason = "no_candidate"
	DropAmbiguous   DropReason = "ambiguous"
	DropStdMethod   DropReason = "std_method"
	DropPolicy      DropReason = "dispatch_policy"
)

// Stats counts call outcomes. Values from parallel chunks are combined with Add.
type Stats struct {
	Calls    int
	Hits     map[Strategy]int
	Dropped  map[DropReason]int
	Deferred int
}

func NewStats() Stats {
	return Stats{Hits: make(map[Strategy]int), Dropped: make(map[DropReason]int)}
}

func (s *Stats) Hit(strategy Strategy) {
	if s.Hits == nil {
		s.Hits = make(map[Strategy]int)
	}
	s.Hits[strategy]++
}

func (s *Stats) Drop(reason DropReason) {
	if s.Dropped == nil {
		s.Dropped = make(map[DropReason]int)
	}
	s.Dropped[reason]++
}

func (s *Stats) Add(o Stats) {
	if s.Hits == nil {
		s.Hits = make(map[Strategy]int)
	}
	if s.Dropped == nil {
		s.Dropped = make(map[DropReason]int)
	}
	s.Calls += o.Calls
	s.Deferred += o.Deferred
	for k, v := range o.Hits {
		s.Hits[k] += v
	}
	for k, v := range o.Dropped {
		s.Dropped[k] += v
	}
}

// Resolved is the number of calls that produced at least one edge.
func (s Stats) Resolved() int {
	total := 0
	for _, v := range s.Hits {
		total += v
	}
	return total
}

func (s Stats) DroppedTotal() int {
	total := 0
	for _, v := range s.Dropped {
		total += v
	}
	return total
}

// SuccessRate is the resolved share of all calls, 0 when there were none.
func (s Stats) SuccessRate() float64 {
	if s.Calls == 0 {
		return 0
	}
	return float64(s.Resolved()) / float64(s.Calls)
}

// Reasons returns the drop reasons seen, sorted.
func (s Stats) Reasons() []DropReason {
	out := make([]DropReason, 0, len(s.Dropped))
	for r := range s.Dropped {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
