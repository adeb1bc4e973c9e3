package main

import (
	"fmt"
	"math/rand"
	"strconv"
	"sync/atomic"

	"github.com/metricdrain/statsd"
)

type metricData struct {
	count           uint64 // atomic
	nameFormat      string
	nameCardinality uint
	tagCardinality  []uint
	valueLimit      uint
}

// metricGenerator draws randomized metrics and pushes them through the
// client. One generator per worker goroutine, so only the counts are shared.
type metricGenerator struct {
	// Counter fields below must be read/written only using atomic instructions.
	// 64-bit fields must be the first fields in the struct to guarantee proper memory alignment.
	// See https://golang.org/pkg/sync/atomic/#pkg-note-BUG
	sent   uint64
	failed uint64

	rnd        *rand.Rand
	sampleRate float64

	counters metricData
	gauges   metricData
	sets     metricData
	timers   metricData
}

func newGenerator(opts commandOptions) *metricGenerator {
	nameFormat := func(kind string) string {
		return fmt.Sprintf("%s%s", kind, opts.MetricSuffix)
	}
	return &metricGenerator{
		rnd:        rand.New(rand.NewSource(rand.Int63())),
		sampleRate: opts.SampleRate,
		counters: metricData{
			nameFormat:      nameFormat("counter"),
			count:           opts.Counts.Counter / uint64(opts.Workers),
			nameCardinality: opts.NameCard.Counter,
			tagCardinality:  opts.TagCard.Counter,
			valueLimit:      opts.ValueRange.Counter,
		},
		gauges: metricData{
			nameFormat:      nameFormat("gauge"),
			count:           opts.Counts.Gauge / uint64(opts.Workers),
			nameCardinality: opts.NameCard.Gauge,
			tagCardinality:  opts.TagCard.Gauge,
			valueLimit:      opts.ValueRange.Gauge,
		},
		sets: metricData{
			nameFormat:      nameFormat("set"),
			count:           opts.Counts.Set / uint64(opts.Workers),
			nameCardinality: opts.NameCard.Set,
			tagCardinality:  opts.TagCard.Set,
			valueLimit:      opts.ValueRange.Set,
		},
		timers: metricData{
			nameFormat:      nameFormat("timer"),
			count:           opts.Counts.Timer / uint64(opts.Workers),
			nameCardinality: opts.NameCard.Timer,
			tagCardinality:  opts.TagCard.Timer,
			valueLimit:      opts.ValueRange.Timer,
		},
	}
}

func (md *metricData) name(r *rand.Rand) string {
	return fmt.Sprintf(md.nameFormat, r.Intn(int(md.nameCardinality)))
}

func (md *metricData) tags(r *rand.Rand) []string {
	if len(md.tagCardinality) == 0 {
		return nil
	}
	tags := make([]string, 0, len(md.tagCardinality))
	for idx, c := range md.tagCardinality {
		tags = append(tags, fmt.Sprintf("tag%d:%d", idx, r.Intn(int(c))))
	}
	return tags
}

// outcome tallies the callback of every send.
func (mg *metricGenerator) outcome(_ int, err error) {
	if err != nil {
		atomic.AddUint64(&mg.failed, 1)
	} else {
		atomic.AddUint64(&mg.sent, 1)
	}
}

func (mg *metricGenerator) nextCounter(c *statsd.Client) {
	atomic.AddUint64(&mg.counters.count, ^uint64(0))
	c.Count(mg.counters.name(mg.rnd), float64(1+mg.rnd.Intn(int(mg.counters.valueLimit+1))),
		statsd.WithRate(mg.sampleRate),
		statsd.WithTags(mg.counters.tags(mg.rnd)...),
		statsd.WithCallback(mg.outcome))
}

func (mg *metricGenerator) nextGauge(c *statsd.Client) {
	atomic.AddUint64(&mg.gauges.count, ^uint64(0))
	c.Gauge(mg.gauges.name(mg.rnd), float64(mg.rnd.Intn(int(mg.gauges.valueLimit))),
		statsd.WithTags(mg.gauges.tags(mg.rnd)...),
		statsd.WithCallback(mg.outcome))
}

func (mg *metricGenerator) nextSet(c *statsd.Client) {
	atomic.AddUint64(&mg.sets.count, ^uint64(0))
	c.Unique(mg.sets.name(mg.rnd), strconv.Itoa(mg.rnd.Intn(int(mg.sets.valueLimit))),
		statsd.WithTags(mg.sets.tags(mg.rnd)...),
		statsd.WithCallback(mg.outcome))
}

func (mg *metricGenerator) nextTimer(c *statsd.Client) {
	atomic.AddUint64(&mg.timers.count, ^uint64(0))
	c.TimingMS(mg.timers.name(mg.rnd), mg.rnd.Float64()*float64(mg.timers.valueLimit),
		statsd.WithRate(mg.sampleRate),
		statsd.WithTags(mg.timers.tags(mg.rnd)...),
		statsd.WithCallback(mg.outcome))
}

func (mg *metricGenerator) next(c *statsd.Client) bool {
	// We can safely read these non-atomically, because this goroutine is the only one that writes to them.
	total := mg.counters.count + mg.gauges.count + mg.sets.count + mg.timers.count
	if total == 0 {
		return false
	}

	n := uint64(mg.rnd.Int63n(int64(total)))
	if n < mg.counters.count {
		mg.nextCounter(c)
	} else if n < mg.counters.count+mg.gauges.count {
		mg.nextGauge(c)
	} else if n < mg.counters.count+mg.gauges.count+mg.sets.count {
		mg.nextSet(c)
	} else {
		mg.nextTimer(c)
	}
	return true
}
