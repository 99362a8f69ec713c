package common

import (
	"encoding/hex"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// Digest returns the hex encoded BLAKE2b-256 sum of data. Both ends of a run
// log it, so transfers can be compared byte for byte.
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Run is the outcome of one transfer.
type Run struct {
	Number  int
	Bytes   int
	Elapsed time.Duration
	Digest  string
}

// Bandwidth returns the throughput of the run in MB/s.
func (run Run) Bandwidth() float64 {
	if run.Elapsed <= 0 {
		return 0
	}
	return float64(run.Bytes) / (1024 * 1024) / run.Elapsed.Seconds()
}

func (run Run) Log(role string) {
	log.WithFields(log.Fields{
		"Role":      role,
		"Run":       run.Number,
		"Bytes":     run.Bytes,
		"Time":      run.Elapsed,
		"Bandwidth": fmt.Sprintf("%.2fMB/s", run.Bandwidth()),
		"Digest":    run.Digest,
	}).Info("Run completed")
}

type Statistics struct {
	Runs []Run
}

func (stats *Statistics) Add(run Run) {
	stats.Runs = append(stats.Runs, run)
}

func (stats *Statistics) AverageTime() time.Duration {
	if len(stats.Runs) == 0 {
		return 0
	}

	var total time.Duration
	for _, run := range stats.Runs {
		total += run.Elapsed
	}
	return total / time.Duration(len(stats.Runs))
}

// AverageBandwidth returns the mean of the per run bandwidths in MB/s.
func (stats *Statistics) AverageBandwidth() float64 {
	if len(stats.Runs) == 0 {
		return 0
	}

	var total float64
	for _, run := range stats.Runs {
		total += run.Bandwidth()
	}
	return total / float64(len(stats.Runs))
}

func (stats *Statistics) Log(role string) {
	log.WithFields(log.Fields{
		"Role":      role,
		"Runs":      len(stats.Runs),
		"Time":      stats.AverageTime(),
		"Bandwidth": fmt.Sprintf("%.2fMB/s", stats.AverageBandwidth()),
	}).Info("Average over all runs")
}
