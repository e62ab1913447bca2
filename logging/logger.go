package logging

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

// EnvDevMode controls statistics visibility: full detail is only exposed
// when DEV_MODE=true.
const EnvDevMode = "DEV_MODE"

const statisticsFile = "usage.json"

// Statistics tracks service usage: visitors, analysis volume, analyzed
// sites, and timing.
type Statistics struct {
	UniqueVisitors   map[string]time.Time `json:"uniqueVisitors"` // IP -> last visit
	AnalysisRequests int                  `json:"analysisCount"`
	ErrorCount       int                  `json:"errorCount"`
	AnalyzedSites    map[string]int       `json:"analyzedSites"` // host -> count
	AverageDuration  float64              `json:"averageDurationMs"`
	TotalDuration    float64              `json:"-"`
	DurationSamples  int                  `json:"-"`
	LastPersisted    time.Time            `json:"lastPersisted"`
	mutex            sync.RWMutex
}

var (
	usage *Statistics
	once  sync.Once
)

// Initialize creates or loads the process-wide usage statistics.
func Initialize() *Statistics {
	once.Do(func() {
		usage = &Statistics{
			UniqueVisitors: make(map[string]time.Time),
			AnalyzedSites:  make(map[string]int),
			LastPersisted:  time.Now(),
		}

		if err := usage.Load(); err != nil {
			fmt.Printf("Could not load existing statistics: %v\n", err)
		}
	})
	return usage
}

// TrackVisitor records a unique visitor by IP.
func (s *Statistics) TrackVisitor(ip string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.UniqueVisitors[ip] = time.Now()
}

// siteOf reduces an analyzed URL to its host; local and API addresses are
// not tracked.
func siteOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, "localhost") || host == "127.0.0.1" {
		return ""
	}
	return host
}

// TrackAnalysis records one analysis request and its timing.
func (s *Statistics) TrackAnalysis(targetURL string, durationMs float64, hasError bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.AnalysisRequests++

	if site := siteOf(targetURL); site != "" {
		s.AnalyzedSites[site]++
	}

	if hasError {
		s.ErrorCount++
	}

	s.TotalDuration += durationMs
	s.DurationSamples++
	s.AverageDuration = s.TotalDuration / float64(s.DurationSamples)
}

// AnalysisCount returns the total number of analysis requests.
func (s *Statistics) AnalysisCount() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.AnalysisRequests
}

// UniqueVisitorsLast24h counts visitors seen within the last day.
func (s *Statistics) UniqueVisitorsLast24h() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	count := 0
	cutoff := time.Now().Add(-24 * time.Hour)

	for _, lastVisit := range s.UniqueVisitors {
		if lastVisit.After(cutoff) {
			count++
		}
	}

	return count
}

// TopSites returns up to n analyzed hosts with their counts.
func (s *Statistics) TopSites(n int) map[string]int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	result := make(map[string]int)
	count := 0

	for site, freq := range s.AnalyzedSites {
		if count >= n {
			break
		}
		result[site] = freq
		count++
	}

	return result
}

// ErrorRate returns the share of analysis requests that failed, in percent.
func (s *Statistics) ErrorRate() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if s.AnalysisRequests == 0 {
		return 0
	}

	return float64(s.ErrorCount) / float64(s.AnalysisRequests) * 100
}

// Save persists the statistics to disk.
func (s *Statistics) Save() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.LastPersisted = time.Now()

	file, err := os.Create(statisticsFile)
	if err != nil {
		return fmt.Errorf("could not create statistics file: %w", err)
	}
	defer file.Close()

	if err := json.NewEncoder(file).Encode(s); err != nil {
		return fmt.Errorf("could not encode statistics: %w", err)
	}

	return nil
}

// Load reads previously persisted statistics; a missing file is not an
// error.
func (s *Statistics) Load() error {
	file, err := os.Open(statisticsFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("could not open statistics file: %w", err)
	}
	defer file.Close()

	if err := json.NewDecoder(file).Decode(s); err != nil {
		return fmt.Errorf("could not decode statistics: %w", err)
	}

	return nil
}

// Snapshot returns the current statistics. Outside development mode the
// per-site breakdown is withheld.
func (s *Statistics) Snapshot() map[string]interface{} {
	summary := map[string]interface{}{
		"uniqueVisitors24h": s.UniqueVisitorsLast24h(),
		"totalAnalyses":     s.AnalysisCount(),
		"errorRate":         s.ErrorRate(),
		"averageDurationMs": s.averageDuration(),
	}

	if os.Getenv(EnvDevMode) == "true" {
		summary["topSites"] = s.TopSites(5)
	}

	return summary
}

func (s *Statistics) averageDuration() float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.AverageDuration
}
