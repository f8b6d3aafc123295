package clientmetrics

import (
	"sync"
	"time"
)

// TransferStats tracks the counters of one chunked upload session.
type TransferStats struct {
	mu            sync.Mutex
	chunks        int64
	bytes         int64
	bytesReceived int64
	start         time.Time
	end           time.Time
}

// New creates an empty TransferStats.
func New() *TransferStats {
	return &TransferStats{}
}

// MarkStart records the beginning of the send phase.
func (s *TransferStats) MarkStart(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.start = t
	s.end = time.Time{}
}

// MarkEnd finalizes the stats at the end of the read phase.
func (s *TransferStats) MarkEnd(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.end = t
}

// AddChunk counts one framed chunk of n payload bytes.
func (s *TransferStats) AddChunk(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks++
	s.bytes += int64(n)
}

// AddReceived counts response bytes read from the connection.
func (s *TransferStats) AddReceived(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bytesReceived += int64(n)
}

// Chunks returns the number of chunks sent so far.
func (s *TransferStats) Chunks() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chunks
}

// Bytes returns the payload bytes sent so far.
func (s *TransferStats) Bytes() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes
}

// Snapshot is an immutable view of TransferStats.
type Snapshot struct {
	Chunks        int64         `json:"chunks" yaml:"chunks"`
	Bytes         int64         `json:"bytes" yaml:"bytes"`
	BytesReceived int64         `json:"bytes_received" yaml:"bytes_received"`
	Start         time.Time     `json:"start" yaml:"start"`
	End           time.Time     `json:"end" yaml:"end"`
	Duration      time.Duration `json:"-" yaml:"-"`
	DurationSec   float64       `json:"duration_sec" yaml:"duration_sec"`
	// BytesPerSec is zero until both ends are marked or when the duration is zero.
	BytesPerSec float64 `json:"bytes_per_sec" yaml:"bytes_per_sec"`
}

// MeanChunkSize returns the average payload bytes per chunk.
func (s Snapshot) MeanChunkSize() float64 {
	if s.Chunks == 0 {
		return 0
	}
	return float64(s.Bytes) / float64(s.Chunks)
}

// Mbps returns the transfer rate in megabits per second (2^20 bits).
func (s Snapshot) Mbps() float64 {
	return s.BytesPerSec * 8 / (1024 * 1024)
}

// Snapshot returns a consistent copy with derived duration and rate.
func (s *TransferStats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Chunks:        s.chunks,
		Bytes:         s.bytes,
		BytesReceived: s.bytesReceived,
		Start:         s.start,
		End:           s.end,
	}
	if !s.start.IsZero() && !s.end.IsZero() && s.end.After(s.start) {
		snap.Duration = s.end.Sub(s.start)
		snap.DurationSec = snap.Duration.Seconds()
		snap.BytesPerSec = float64(s.bytes) / snap.DurationSec
	}
	return snap
}
