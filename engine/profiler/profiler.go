package profiler

import (
	"fmt"
	"log"
	"runtime"
	"sort"
	"strings"
	"time"
)

// Report is one profiling window: frame rate, average stage times, memory and GC counters.
type Report struct {
	FPS         float64
	Frames      int
	Stages      map[string]time.Duration // mean duration per frame
	Particles   int
	HeapMB      float64
	AllocRateMB float64
	GCCount     uint32
	LastPauseUs uint64
	MaxPauseUs  uint64
	SysMB       float64
}

// String formats the report as a single log line.
func (r Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "FPS: %.2f | Particles: %d", r.FPS, r.Particles)

	names := make([]string, 0, len(r.Stages))
	for name := range r.Stages {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&sb, " | %s: %.2f ms", name, float64(r.Stages[name].Microseconds())/1000)
	}

	fmt.Fprintf(&sb, " | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs, max: %d µs) | Sys: %.2f MB",
		r.HeapMB, r.AllocRateMB, r.GCCount, r.LastPauseUs, r.MaxPauseUs, r.SysMB)
	return sb.String()
}

// Profiler tracks frame rate, per-stage frame timings and memory statistics.
// Outputs a Report to the log at a configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	now            func() time.Time
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	stages    map[string]time.Duration
	particles int
	last      Report
	quiet     bool
}

// NewProfiler creates a new Profiler. The update interval defaults to 1 second.
//
// Parameters:
//   - options: functional options to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
		stages:         make(map[string]time.Duration),
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Record adds the time one frame spent in a named stage.
//
// Parameters:
//   - stage: stage name, e.g. "record" or "wait"
//   - d: time spent in the stage this frame
func (p *Profiler) Record(stage string, d time.Duration) {
	p.stages[stage] += d
}

// SetParticles sets the live particle count shown in the next report.
func (p *Profiler) SetParticles(n int) {
	p.particles = n
}

// Last returns the most recent report.
func (p *Profiler) Last() Report {
	return p.last
}

// Tick should be called once per frame. It logs a Report when the update interval has
// elapsed.
//
// Returns:
//   - bool: true if a report was produced this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	r := Report{
		FPS:       float64(p.frameCount) / elapsed.Seconds(),
		Frames:    p.frameCount,
		Stages:    make(map[string]time.Duration, len(p.stages)),
		Particles: p.particles,
	}
	for name, total := range p.stages {
		r.Stages[name] = total / time.Duration(p.frameCount)
	}

	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.SysMB = float64(p.memStats.Sys) / 1024 / 1024
	r.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	// PauseNs is a circular buffer of the last 256 GC pauses.
	r.GCCount = p.memStats.NumGC
	if r.GCCount > 0 {
		r.LastPauseUs = p.memStats.PauseNs[(r.GCCount-1)%256] / 1000
		start := p.lastGCCount
		if r.GCCount-start > 256 {
			start = r.GCCount - 256
		}
		for i := start; i < r.GCCount; i++ {
			r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	if !p.quiet {
		log.Printf("[Profiler] %s", r)
	}

	p.last = r
	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = r.GCCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	clear(p.stages)
	return true
}
