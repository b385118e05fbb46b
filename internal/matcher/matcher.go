// Package matcher maps free-text medicine descriptions onto the medicine
// master list using bigram (Sørensen–Dice) similarity.
package matcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/Sayyed-Ali/MediSys/internal/logger"
	"github.com/Sayyed-Ali/MediSys/internal/model"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"golang.org/x/sync/singleflight"
)

// Loader returns the full medicine list. Order matters: ties go to the earlier entry.
type Loader func(ctx context.Context) ([]model.Medicine, error)

// Match is the best candidate for a description
type Match struct {
	Medicine model.Medicine `json:"medicine"`
	Rating   float64        `json:"rating"`
}

type snapshot struct {
	medicines []model.Medicine
	keys      []string
	loadedAt  time.Time
}

// Cache holds a time-limited snapshot of medicine names. Readers never block on
// each other; concurrent reloads are collapsed into one loader call.
type Cache struct {
	load   Loader
	ttl    time.Duration
	now    func() time.Time
	metric *metrics.SorensenDice

	snap  atomic.Pointer[snapshot]
	gen   atomic.Uint64
	group singleflight.Group
}

// New builds a cache. now may be nil, in which case time.Now is used.
func New(load Loader, ttl time.Duration, now func() time.Time) *Cache {
	if now == nil {
		now = time.Now
	}
	metric := metrics.NewSorensenDice()
	metric.CaseSensitive = false
	metric.NgramSize = 2

	return &Cache{
		load:   load,
		ttl:    ttl,
		now:    now,
		metric: metric,
	}
}

// Invalidate drops the snapshot; the next Match reloads. A load already in
// flight is not cached, since it may have read the list before the change.
func (c *Cache) Invalidate() {
	c.gen.Add(1)
	c.snap.Store(nil)
}

// Match returns the highest rated medicine for text, or nil when text is blank
// or the master list is empty.
func (c *Cache) Match(ctx context.Context, text string) (*Match, error) {
	key := compact(text)
	if key == "" {
		return nil, nil
	}

	snap, err := c.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(snap.medicines) == 0 {
		return nil, nil
	}

	best, bestIdx := -1.0, -1
	for i, name := range snap.keys {
		if name == "" {
			continue
		}
		r := c.similarity(key, name)
		if r > best {
			best, bestIdx = r, i
		}
	}
	if bestIdx < 0 {
		return nil, nil
	}
	return &Match{Medicine: snap.medicines[bestIdx], Rating: best}, nil
}

// Similarity rates two names in [0,1], ignoring case and whitespace
func (c *Cache) Similarity(a, b string) float64 {
	return c.similarity(compact(a), compact(b))
}

func (c *Cache) similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	return strutil.Similarity(a, b, c.metric)
}

func (c *Cache) snapshot(ctx context.Context) (*snapshot, error) {
	cur := c.snap.Load()
	if cur != nil && c.now().Sub(cur.loadedAt) < c.ttl {
		return cur, nil
	}

	gen := c.gen.Load()
	v, err, _ := c.group.Do(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		meds, err := c.load(ctx)
		if err != nil {
			return nil, err
		}
		s := &snapshot{
			medicines: meds,
			keys:      make([]string, len(meds)),
			loadedAt:  c.now(),
		}
		for i, m := range meds {
			s.keys[i] = compact(m.Name)
		}
		if c.gen.Load() == gen {
			c.snap.Store(s)
		}
		return s, nil
	})
	if err != nil {
		if cur != nil {
			log := logger.WithComponent("matcher")
			log.Warn().Err(err).Msg("medicine reload failed, matching against stale snapshot")
			return cur, nil
		}
		return nil, fmt.Errorf("load medicines: %w", err)
	}
	return v.(*snapshot), nil
}

// compact lower-cases s and removes all whitespace
func compact(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}
