// internal/discovery/fusion.go
package discovery

import (
	"sort"
	"strings"

	"github.com/linnemanlabs/tandem/internal/evidence"
)

// Tier is the discrete confidence classification derived from which
// strategies produced evidence for a candidate.
type Tier string

const (
	// TierKnown marks an established target retained in validation mode.
	TierKnown Tier = "Tier 0: Known Target"

	// TierConsensus marks a candidate confirmed by both paths.
	TierConsensus Tier = "Tier 1: Consensus"

	// TierDataDriven marks a candidate seen only in the omics data.
	TierDataDriven Tier = "Tier 2: Data-Driven"

	// TierTheoryOnly marks a candidate with graph evidence but no
	// experimental signal.
	TierTheoryOnly Tier = "Tier 3: Theory-Only"
)

// Score bonuses per tier and evidence contribution.
const (
	consensusBonus  = 5.0
	dataDrivenBonus = 2.0
	theoryOnlyScore = 1.0
	knownBonus      = 5.0
	externalBonus   = 1.0
	strongLitBonus  = 3.0
	mediumLitBonus  = 1.0
)

// actionGuide maps a tier to the recommended next step for bench work.
func actionGuide(t Tier) string {
	switch t {
	case TierKnown:
		return "Established target; evidence refreshed for this run (Reference)"
	case TierConsensus:
		return "Recommend as primary experimental target (Priority High)"
	case TierDataDriven:
		return "Recommend literature mining for corroboration (Priority Med)"
	default:
		return "Recheck experimental conditions or hold as backup (Priority Low)"
	}
}

// Candidate is the mutable fusion aggregate for one unique gene symbol.
// Owned exclusively by the Pool for the lifetime of one run.
type Candidate struct {
	Symbol         string
	Sources        map[evidence.Source]bool
	Known          bool
	BestOmicsScore float64
	Omics          *OmicsSnapshot // first sighting wins; never oscillates between sources
	Narrative      string         // longest seen
	Facts          []string       // ordered, deduplicated by exact text
	NumericSummary string
	ExternalScore  float64
	Literature     *evidence.Verdict
}

// Tier derives the classification from the accumulated sources. Pure: safe
// to call at any point, stable once all sources are absorbed.
func (c *Candidate) Tier(mode Mode) Tier {
	if mode == ModeValidation && c.Known {
		return TierKnown
	}
	switch {
	case c.Sources[evidence.SourceBottomUp] && c.Sources[evidence.SourceTopDown]:
		return TierConsensus
	case c.Sources[evidence.SourceBottomUp]:
		return TierDataDriven
	default:
		return TierTheoryOnly
	}
}

// Score recomputes the full score from parts. It is never adjusted
// incrementally: every contribution lands in a field and the total is
// re-derived, so applying the same evidence twice cannot double-count.
func (c *Candidate) Score(mode Mode) float64 {
	var score float64
	switch c.Tier(mode) {
	case TierKnown:
		score = c.BestOmicsScore + knownBonus
	case TierConsensus:
		score = c.BestOmicsScore + consensusBonus
	case TierDataDriven:
		score = c.BestOmicsScore + dataDrivenBonus
	default:
		// Theory-only candidates have no numeric signal to add.
		score = theoryOnlyScore
	}

	if c.ExternalScore > 0 {
		score += externalBonus
	}
	score += litBonus(c.Literature)
	return score
}

func litBonus(v *evidence.Verdict) float64 {
	if v == nil {
		return 0
	}
	support := strings.ToLower(v.Support)
	switch {
	case strings.Contains(support, "high"), strings.Contains(support, "strong"):
		return strongLitBonus
	case strings.Contains(support, "medium"):
		return mediumLitBonus
	}
	return 0
}

// Pool is the fused candidate set for one run.
type Pool struct {
	mode          Mode
	candidates    map[string]*Candidate
	rejectedKnown map[string]bool
	externalOnly  map[string]bool // scores for symbols no path proposed; diagnostics only
}

// Fuse folds branch results into a candidate pool. The fold is commutative
// and associative per candidate, so branch completion order never changes
// tiers or scores; re-invoking over a grown input set is always safe.
func Fuse(branches map[evidence.Source]map[string]evidence.Record, mode Mode) *Pool {
	p := &Pool{
		mode:          mode,
		candidates:    make(map[string]*Candidate),
		rejectedKnown: make(map[string]bool),
		externalOnly:  make(map[string]bool),
	}
	for source, records := range branches {
		for symbol, rec := range records {
			p.absorb(symbol, source, rec)
		}
	}
	return p
}

func (p *Pool) absorb(symbol string, source evidence.Source, rec evidence.Record) {
	if p.mode == ModeDiscovery && rec.Known {
		p.rejectedKnown[symbol] = true
		return
	}

	c, ok := p.candidates[symbol]
	if !ok {
		c = &Candidate{
			Symbol:  symbol,
			Sources: make(map[evidence.Source]bool),
		}
		p.candidates[symbol] = c
	}

	c.Sources[source] = true
	c.Known = c.Known || rec.Known
	c.Narrative = longerOf(c.Narrative, rec.Narrative)

	for _, fact := range rec.Facts {
		if !containsFact(c.Facts, fact) {
			c.Facts = append(c.Facts, fact)
		}
	}

	if rec.Signal != nil {
		if rec.Signal.Score > c.BestOmicsScore {
			c.BestOmicsScore = rec.Signal.Score
		}
		if c.Omics == nil {
			c.Omics = &OmicsSnapshot{
				FoldChange: rec.Signal.FoldChange,
				PValue:     rec.Signal.PValue,
			}
		}
		c.NumericSummary = longerOf(c.NumericSummary, rec.Signal.Summary)
	}
}

// AttachExternal records external-database association scores for symbols
// already in the pool. External data augments a candidate, never originates
// one: scores for unseen symbols are tracked for diagnostics and otherwise
// ignored.
func (p *Pool) AttachExternal(scores map[string]float64) {
	for symbol, score := range scores {
		c, ok := p.candidates[symbol]
		if !ok {
			p.externalOnly[symbol] = true
			continue
		}
		if score > c.ExternalScore {
			c.ExternalScore = score
		}
	}
}

// ApplyVerdicts injects literature verdicts. Idempotent: the verdict is
// stored whole and the score is re-derived from it, so applying the same
// map twice yields the same scores as applying it once.
func (p *Pool) ApplyVerdicts(verdicts map[string]evidence.Verdict) {
	for symbol, v := range verdicts {
		if c, ok := p.candidates[symbol]; ok {
			verdict := v
			c.Literature = &verdict
		}
	}
}

// Size returns the number of candidates in the pool.
func (p *Pool) Size() int { return len(p.candidates) }

// RejectedKnown returns the known targets dropped in discovery mode, sorted
// for determinism.
func (p *Pool) RejectedKnown() []string {
	return sortedKeys(p.rejectedKnown)
}

// Rank returns the pool sorted descending by score, ties broken by symbol.
func (p *Pool) Rank() []*Candidate {
	out := make([]*Candidate, 0, len(p.candidates))
	for _, c := range p.candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		si, sj := out[i].Score(p.mode), out[j].Score(p.mode)
		if si != sj {
			return si > sj
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

// TopSymbols returns the first n ranked symbols. The engine freezes this
// list at merge time: later stages re-score inside it but never change its
// membership.
func (p *Pool) TopSymbols(n int) []string {
	ranked := p.Rank()
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]string, 0, len(ranked))
	for _, c := range ranked {
		out = append(out, c.Symbol)
	}
	return out
}

// Project builds the report for a frozen symbol list, re-sorted by current
// score. Projections are rebuilt, not mutated: callers get fresh values
// every time.
func (p *Pool) Project(symbols []string) []RankedCandidate {
	members := make([]*Candidate, 0, len(symbols))
	for _, s := range symbols {
		if c, ok := p.candidates[s]; ok {
			members = append(members, c)
		}
	}
	sort.SliceStable(members, func(i, j int) bool {
		si, sj := members[i].Score(p.mode), members[j].Score(p.mode)
		if si != sj {
			return si > sj
		}
		return members[i].Symbol < members[j].Symbol
	})

	out := make([]RankedCandidate, 0, len(members))
	for i, c := range members {
		tier := c.Tier(p.mode)
		rc := RankedCandidate{
			Rank:           i + 1,
			Symbol:         c.Symbol,
			Tier:           tier,
			Score:          c.Score(p.mode),
			Sources:        sortedSources(c.Sources),
			ActionGuide:    actionGuide(tier),
			Narrative:      c.Narrative,
			BestOmicsScore: c.BestOmicsScore,
			ExternalScore:  c.ExternalScore,
			Facts:          append([]string(nil), c.Facts...),
			NumericSummary: c.NumericSummary,
			Literature:     c.Literature,
		}
		if c.Omics != nil {
			snap := *c.Omics
			rc.Omics = &snap
		}
		out = append(out, rc)
	}
	return out
}

// longerOf keeps the longer of two strings, breaking length ties
// lexicographically so the merge stays commutative. Length as a proxy for
// informativeness is a documented heuristic, not a correctness requirement.
func longerOf(a, b string) string {
	if len(b) > len(a) {
		return b
	}
	if len(b) == len(a) && b < a {
		return b
	}
	return a
}

func containsFact(facts []string, fact string) bool {
	for _, f := range facts {
		if f == fact {
			return true
		}
	}
	return false
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortedSources(set map[evidence.Source]bool) []evidence.Source {
	out := make([]evidence.Source, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
