// Package observability tracks per-group scan statistics for partitions.
package observability

import (
	"sort"
	"sync"
	"time"
)

// ScanStats accumulates row, field and byte counts per column group. It
// implements partition.Observer and is safe for concurrent use.
type ScanStats struct {
	mu     sync.RWMutex
	groups map[int]*GroupStats
	now    func() time.Time
}

// GroupStats holds statistics for one column group.
type GroupStats struct {
	GroupIndex int
	Rows       int64
	Fields     int64
	Bytes      int64
	Finished   bool
	Err        string // read error that stopped the last producer, if any
	FirstSeen  time.Time
	LastSeen   time.Time
}

// NewScanStats creates an empty statistics tracker.
func NewScanStats() *ScanStats {
	return &ScanStats{
		groups: make(map[int]*GroupStats),
		now:    time.Now,
	}
}

func (s *ScanStats) group(groupIndex int) *GroupStats {
	g, exists := s.groups[groupIndex]
	if !exists {
		g = &GroupStats{GroupIndex: groupIndex, FirstSeen: s.now()}
		s.groups[groupIndex] = g
	}
	return g
}

// ObserveRow records one emitted row. This method is O(1) and thread-safe.
func (s *ScanStats) ObserveRow(groupIndex, fields, bytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.group(groupIndex)
	g.Rows++
	g.Fields += int64(fields)
	g.Bytes += int64(bytes)
	g.LastSeen = s.now()
}

// ObserveEnd marks the group's producer as finished.
func (s *ScanStats) ObserveEnd(groupIndex, rows int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g := s.group(groupIndex)
	g.Finished = true
	g.Err = ""
	if err != nil {
		g.Err = err.Error()
	}
	g.LastSeen = s.now()
}

// Snapshot returns a copy of every group's statistics ordered by group
// index.
func (s *ScanStats) Snapshot() []GroupStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make([]GroupStats, 0, len(s.groups))
	for _, g := range s.groups {
		stats = append(stats, *g)
	}
	sort.Slice(stats, func(i, j int) bool {
		return stats[i].GroupIndex < stats[j].GroupIndex
	})
	return stats
}

// TopByBytes returns the n groups that produced the most bytes.
func (s *ScanStats) TopByBytes(n int) []GroupStats {
	stats := s.Snapshot()
	if n <= 0 || len(stats) == 0 {
		return []GroupStats{}
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Bytes > stats[j].Bytes
	})

	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

// Totals sums rows, fields and bytes across all groups.
func (s *ScanStats) Totals() (rows, fields, bytes int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.groups {
		rows += g.Rows
		fields += g.Fields
		bytes += g.Bytes
	}
	return rows, fields, bytes
}

// Throughput returns bytes per second for a group between its first and
// last observation, or 0 when there is not enough data.
func (s *ScanStats) Throughput(groupIndex int) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, exists := s.groups[groupIndex]
	if !exists {
		return 0
	}
	elapsed := g.LastSeen.Sub(g.FirstSeen).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(g.Bytes) / elapsed
}
