package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dustin/go-humanize"

	"github.com/nulljosh/claimcheck/internal/logger"
	"github.com/nulljosh/claimcheck/internal/portal"
)

const (
	latestFile     = "latest.json"
	latestGoodFile = "latest-good.json"
)

// ResultStore keeps the most recent check result and, separately, the most
// recent fully successful one, so the dashboard can show stale-but-good data
// when a run fails. Both survive restarts as JSON files.
type ResultStore struct {
	mu   sync.RWMutex
	dir  string
	last *portal.AggregateResult
	good *portal.AggregateResult
}

func NewResultStore(dir string) (*ResultStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("results dir: %w", err)
	}
	rs := &ResultStore{dir: dir}
	rs.last = readResult(filepath.Join(dir, latestFile))
	rs.good = readResult(filepath.Join(dir, latestGoodFile))
	return rs, nil
}

// Put records a run result. Results where the run and every section
// succeeded also become the latest-good snapshot.
func (rs *ResultStore) Put(res *portal.AggregateResult) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	rs.last = res
	writeResult(filepath.Join(rs.dir, latestFile), res)

	if allGood(res) {
		rs.good = res
		writeResult(filepath.Join(rs.dir, latestGoodFile), res)
	}
}

// Latest returns the most recent result, falling back to the latest-good
// snapshot when nothing newer exists.
func (rs *ResultStore) Latest() *portal.AggregateResult {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	if rs.last != nil {
		return rs.last
	}
	return rs.good
}

// LatestGood returns the most recent fully successful result.
func (rs *ResultStore) LatestGood() *portal.AggregateResult {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.good
}

// Age describes how long ago the latest result was produced, for humans.
func (rs *ResultStore) Age() string {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	if rs.last == nil {
		return "never"
	}
	return humanize.Time(rs.last.Timestamp)
}

func allGood(res *portal.AggregateResult) bool {
	if res == nil || !res.Success {
		return false
	}
	for _, sec := range res.Sections {
		if !sec.Success {
			return false
		}
	}
	return len(res.Sections) > 0
}

func readResult(path string) *portal.AggregateResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var res portal.AggregateResult
	if err := json.Unmarshal(data, &res); err != nil {
		logger.Warn("discarding unreadable result file", "path", path, "error", err)
		return nil
	}
	return &res
}

func writeResult(path string, res *portal.AggregateResult) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		logger.Warn("encoding result failed", "error", err)
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		logger.Warn("persisting result failed", "path", path, "error", err)
	}
}
