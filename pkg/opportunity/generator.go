// Package opportunity generates and ranks candidate build specifications
package opportunity

import (
	"math"
	"math/rand"
	"regexp"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/foreman-dev/foreman/pkg/clock"
	"github.com/foreman-dev/foreman/pkg/types"
)

// DefaultJitter is the default profit score amplitude
const DefaultJitter = 0.3

// Generator produces opportunity batches from a catalog. Scores and ids are
// drawn from the injected random source, so a fixed seed yields a fixed
// sequence of batches.
type Generator struct {
	mu      sync.Mutex
	catalog []Entry
	rand    *rand.Rand
	jitter  float64
	clock   clock.Clock
}

// New creates a generator over the default catalog seeded with seed
func New(seed int64) *Generator {
	return NewWithSource(rand.NewSource(seed))
}

// NewWithSource creates a generator over the default catalog using src
func NewWithSource(src rand.Source) *Generator {
	return &Generator{
		catalog: DefaultCatalog(),
		rand:    rand.New(src), // #nosec G404 -- scores are simulated, not security sensitive
		jitter:  DefaultJitter,
		clock:   clock.Real(),
	}
}

// WithJitter sets the score amplitude; negative values are treated as zero
func (g *Generator) WithJitter(jitter float64) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.jitter = math.Max(0, jitter)
	return g
}

// WithClock sets the clock used to stamp AddedAt
func (g *Generator) WithClock(c clock.Clock) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clock = c
	return g
}

// WithCatalog replaces the catalog
func (g *Generator) WithCatalog(entries []Entry) *Generator {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.catalog = append([]Entry(nil), entries...)
	return g
}

// Generate returns one opportunity per catalog entry, in catalog order
func (g *Generator) Generate() []types.Opportunity {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	ops := make([]types.Opportunity, 0, len(g.catalog))
	for _, e := range g.catalog {
		ops = append(ops, types.Opportunity{
			ID:               g.newID(),
			Name:             e.Name,
			Category:         e.Category,
			Monetization:     e.Monetization,
			EstimatedRevenue: e.EstimatedRevenue,
			BuildTime:        e.BuildTime,
			Complexity:       e.Complexity,
			MarketDemand:     e.MarketDemand,
			Competition:      e.Competition,
			Description:      e.Description,
			Features:         append([]string(nil), e.Features...),
			TechStack:        append([]string(nil), e.TechStack...),
			ProfitScore:      g.score(e.BaseScore),
			AddedAt:          now,
		})
	}
	return ops
}

func (g *Generator) newID() string {
	id, err := uuid.NewRandomFromReader(g.rand)
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func (g *Generator) score(base float64) float64 {
	s := base + (g.rand.Float64()*2-1)*g.jitter
	s = math.Min(10, math.Max(0, s))
	return math.Round(s*10) / 10
}

// Rank returns the k highest scoring opportunities, ties keeping input order.
// The input slice is not modified.
func Rank(ops []types.Opportunity, k int) []types.Opportunity {
	sorted := append([]types.Opportunity(nil), ops...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ProfitScore > sorted[j].ProfitScore
	})
	if k < 0 {
		k = 0
	}
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}

var buildTimeRange = regexp.MustCompile(`(\d+)-(\d+)`)

// BuildDays returns the mean of a "min-max" day range such as "2-3 days"
func BuildDays(buildTime string) (float64, bool) {
	m := buildTimeRange.FindStringSubmatch(buildTime)
	if m == nil {
		return 0, false
	}
	lo, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	hi, err := strconv.Atoi(m[2])
	if err != nil {
		return 0, false
	}
	return float64(lo+hi) / 2, true
}

// EstimateCompletion adds the mean build time to start, or returns start if
// the range cannot be parsed
func EstimateCompletion(start time.Time, buildTime string) time.Time {
	days, ok := BuildDays(buildTime)
	if !ok {
		return start
	}
	return start.Add(time.Duration(days * float64(24*time.Hour)))
}
