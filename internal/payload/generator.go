// Package payload generates the synthetic JSON records streamed by a session.
//
// A [Bundle] is always laid out as one header record, the data chunks in generation
// order, then one footer record. Data chunk sizes are drawn from [ChunkSizes]; the
// generator stops at the first chunk that brings the data total to the target.
package payload

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// ChunkSizes is the palette nominal chunk sizes are drawn from.
var ChunkSizes = [...]int{1024, 2048, 4096, 8192, 16384}

const (
	// MaxHeaderChunkEntries bounds the chunk metadata list carried by the header.
	MaxHeaderChunkEntries = 100

	maxRandomDataLen = 500
	sampleValueCount = 10
	binarySampleLen  = 50
	hashHexDigits    = 64

	alphanumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	hexDigits    = "0123456789abcdef"

	// paddingOverhead is the length of `,"padding":""` added around the filler.
	paddingOverhead = len(`,"padding":""`)

	bytesPerMegabyte = 1024 * 1024
)

// ClientInfo identifies the generating client inside the header record.
type ClientInfo struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Platform string `json:"platform"`
}

// DefaultClientInfo is stamped into headers when the generator is not given one.
var DefaultClientInfo = ClientInfo{
	Name:     "ChunkedStressClient",
	Version:  "1.0.0",
	Platform: "Go",
}

// Chunk is one generated data record.
type Chunk struct {
	Index int
	Data  []byte
	Size  int // nominal size drawn from ChunkSizes
}

// Bundle is the immutable output of one generation run.
type Bundle struct {
	Header []byte
	Chunks []Chunk
	Footer []byte
}

// Payloads returns header, data chunks and footer in send order.
func (b *Bundle) Payloads() [][]byte {
	if b == nil {
		return nil
	}
	out := make([][]byte, 0, len(b.Chunks)+2)
	out = append(out, b.Header)
	for _, c := range b.Chunks {
		out = append(out, c.Data)
	}
	out = append(out, b.Footer)
	return out
}

// Len returns the number of payloads including header and footer.
func (b *Bundle) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Chunks) + 2
}

// DataBytes sums the serialized size of the data chunks only.
func (b *Bundle) DataBytes() int64 {
	if b == nil {
		return 0
	}
	var total int64
	for _, c := range b.Chunks {
		total += int64(len(c.Data))
	}
	return total
}

// TotalBytes sums every payload including header and footer.
func (b *Bundle) TotalBytes() int64 {
	if b == nil {
		return 0
	}
	return b.DataBytes() + int64(len(b.Header)) + int64(len(b.Footer))
}

// MegabytesToBytes converts a size in MiB to a byte count, rounding up so a
// fractional byte still counts toward the target.
func MegabytesToBytes(mb float64) int64 {
	if mb <= 0 {
		return 0
	}
	return int64(math.Ceil(mb * bytesPerMegabyte))
}

// Generator builds bundles from a Source.
type Generator struct {
	src    Source
	client ClientInfo
}

// NewGenerator returns a Generator drawing from src. A nil src uses a time-seeded one.
func NewGenerator(src Source) *Generator {
	if src == nil {
		src = NewRandomSource()
	}
	return &Generator{src: src, client: DefaultClientInfo}
}

// WithClientInfo overrides the identity stamped into header records.
func (g *Generator) WithClientInfo(info ClientInfo) *Generator {
	g.client = info
	return g
}

type chunkMetrics struct {
	CPULoad      float64 `json:"cpu_load"`
	MemoryUsed   int     `json:"memory_used"`
	NetworkSpeed int     `json:"network_speed"`
	Latency      float64 `json:"latency"`
}

type chunkRecord struct {
	ChunkID      int          `json:"chunk_id"`
	Sequence     int          `json:"sequence"`
	Size         int          `json:"size"`
	Timestamp    string       `json:"timestamp"`
	RandomData   string       `json:"random_data"`
	Metrics      chunkMetrics `json:"metrics"`
	SampleValues []int        `json:"sample_values"`
	BinarySample string       `json:"binary_sample"`
	Padding      string       `json:"padding,omitempty"`
}

type chunkMeta struct {
	ChunkID int `json:"chunk_id"`
	Size    int `json:"size"`
}

type headerRecord struct {
	RequestID  string      `json:"request_id"`
	Timestamp  string      `json:"timestamp"`
	ClientInfo ClientInfo  `json:"client_info"`
	DataType   string      `json:"data_type"`
	Chunks     []chunkMeta `json:"chunks"`
}

type footerRecord struct {
	EndOfTransmission bool   `json:"end_of_transmission"`
	TotalChunks       int    `json:"total_chunks"`
	TotalBytes        int64  `json:"total_bytes"`
	FinalTimestamp    string `json:"final_timestamp"`
	Hash              string `json:"hash"`
}

// Generate builds a bundle whose data chunks total at least targetBytes. A target of
// zero or less yields a header and footer only.
func (g *Generator) Generate(targetBytes int64) *Bundle {
	header := headerRecord{
		RequestID:  fmt.Sprintf("req_%06d", 100000+g.src.Intn(900000)),
		Timestamp:  g.timestamp(),
		ClientInfo: g.client,
		DataType:   "performance_test",
		Chunks:     make([]chunkMeta, 0),
	}

	var (
		chunks  []Chunk
		current int64
	)
	for id := 0; current < targetBytes; id++ {
		size := ChunkSizes[g.src.Intn(len(ChunkSizes))]
		data := g.chunk(id, size)
		chunks = append(chunks, Chunk{Index: id, Data: data, Size: size})
		current += int64(len(data))

		if len(header.Chunks) < MaxHeaderChunkEntries {
			header.Chunks = append(header.Chunks, chunkMeta{ChunkID: id, Size: len(data)})
		}
	}

	footer := footerRecord{
		EndOfTransmission: true,
		TotalChunks:       len(chunks),
		TotalBytes:        current,
		FinalTimestamp:    g.timestamp(),
		Hash:              "sha256_" + g.randomString(hexDigits, hashHexDigits),
	}

	return &Bundle{
		Header: mustMarshal(header),
		Chunks: chunks,
		Footer: mustMarshal(footer),
	}
}

func (g *Generator) chunk(id, size int) []byte {
	rec := chunkRecord{
		ChunkID:    id,
		Sequence:   id,
		Size:       size,
		Timestamp:  g.timestamp(),
		RandomData: g.randomString(alphanumeric, min(maxRandomDataLen, size)),
		Metrics: chunkMetrics{
			CPULoad:      0.1 + g.src.Float64()*0.8,
			MemoryUsed:   100 + g.src.Intn(901),
			NetworkSpeed: 1 + g.src.Intn(1000),
			Latency:      0.1 + g.src.Float64()*9.9,
		},
		SampleValues: make([]int, sampleValueCount),
		BinarySample: g.binarySample(),
	}
	for i := range rec.SampleValues {
		rec.SampleValues[i] = 1 + g.src.Intn(1000)
	}

	data := mustMarshal(rec)
	if room := size - len(data) - paddingOverhead; room > 0 {
		rec.Padding = strings.Repeat("x", room)
		data = mustMarshal(rec)
	}
	return data
}

func (g *Generator) timestamp() string {
	return g.src.Now().Format(time.RFC3339Nano)
}

func (g *Generator) randomString(alphabet string, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(alphabet[g.src.Intn(len(alphabet))])
	}
	return sb.String()
}

func (g *Generator) binarySample() string {
	var sb strings.Builder
	sb.Grow(binarySampleLen * 8)
	for i := 0; i < binarySampleLen; i++ {
		fmt.Fprintf(&sb, "%08b", g.src.Intn(256))
	}
	return sb.String()
}

// mustMarshal only sees the fixed record types above, none of which can fail to encode.
func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("payload: marshal %T: %v", v, err))
	}
	return data
}
