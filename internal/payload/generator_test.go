package payload_test

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/torosent/chunkfire/internal/payload"
)

func fixedClock() time.Time {
	return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

func TestGenerateMeetsTarget(t *testing.T) {
	targets := []int64{1, 1000, 10486, 100_000, payload.MegabytesToBytes(1)}
	for _, target := range targets {
		gen := payload.NewGenerator(payload.NewSource(target, fixedClock))
		b := gen.Generate(target)

		if got := b.DataBytes(); got < target {
			t.Errorf("target %d: data bytes %d below target", target, got)
		}
		// Generation stops at the first chunk meeting the target.
		if n := len(b.Chunks); n > 0 {
			without := b.DataBytes() - int64(len(b.Chunks[n-1].Data))
			if without >= target {
				t.Errorf("target %d: generated a chunk past the target (%d bytes before last)", target, without)
			}
		}
	}
}

func TestGenerateZeroTargetYieldsHeaderAndFooter(t *testing.T) {
	for _, target := range []int64{0, -5} {
		b := payload.NewGenerator(payload.NewSource(1, fixedClock)).Generate(target)
		if len(b.Chunks) != 0 {
			t.Fatalf("target %d: expected no data chunks, got %d", target, len(b.Chunks))
		}
		if b.Len() != 2 {
			t.Fatalf("target %d: expected header and footer only, got %d payloads", target, b.Len())
		}

		var header struct {
			Chunks []json.RawMessage `json:"chunks"`
		}
		if err := json.Unmarshal(b.Header, &header); err != nil {
			t.Fatalf("header is not JSON: %v", err)
		}
		if header.Chunks == nil {
			t.Errorf("expected empty chunk list, got null")
		}
	}
}

func TestHeaderChunkListIsCapped(t *testing.T) {
	b := payload.NewGenerator(payload.NewSource(42, fixedClock)).Generate(payload.MegabytesToBytes(3))
	if len(b.Chunks) <= payload.MaxHeaderChunkEntries {
		t.Fatalf("fixture should produce more than %d chunks, got %d", payload.MaxHeaderChunkEntries, len(b.Chunks))
	}

	var header struct {
		RequestID  string `json:"request_id"`
		ClientInfo struct {
			Name string `json:"name"`
		} `json:"client_info"`
		Chunks []struct {
			ChunkID int `json:"chunk_id"`
			Size    int `json:"size"`
		} `json:"chunks"`
	}
	if err := json.Unmarshal(b.Header, &header); err != nil {
		t.Fatalf("header is not JSON: %v", err)
	}
	if len(header.Chunks) != payload.MaxHeaderChunkEntries {
		t.Errorf("header chunk list = %d entries, want %d", len(header.Chunks), payload.MaxHeaderChunkEntries)
	}
	if header.Chunks[0].Size != len(b.Chunks[0].Data) {
		t.Errorf("header metadata size %d != chunk size %d", header.Chunks[0].Size, len(b.Chunks[0].Data))
	}
	if len(header.RequestID) != len("req_123456") {
		t.Errorf("unexpected request id %q", header.RequestID)
	}
	if header.ClientInfo.Name == "" {
		t.Errorf("expected client identity in header")
	}
}

func TestWithClientInfoStampsHeader(t *testing.T) {
	info := payload.ClientInfo{Name: "chunkfire", Version: "9.9.9", Platform: "linux/amd64"}
	b := payload.NewGenerator(payload.NewSource(8, fixedClock)).WithClientInfo(info).Generate(1000)

	var header struct {
		ClientInfo payload.ClientInfo `json:"client_info"`
	}
	if err := json.Unmarshal(b.Header, &header); err != nil {
		t.Fatalf("header is not JSON: %v", err)
	}
	if header.ClientInfo != info {
		t.Errorf("client_info = %+v, want %+v", header.ClientInfo, info)
	}
}

func TestFooterCarriesTotals(t *testing.T) {
	b := payload.NewGenerator(payload.NewSource(7, fixedClock)).Generate(50_000)

	var footer struct {
		EndOfTransmission bool   `json:"end_of_transmission"`
		TotalChunks       int    `json:"total_chunks"`
		TotalBytes        int64  `json:"total_bytes"`
		Hash              string `json:"hash"`
	}
	if err := json.Unmarshal(b.Footer, &footer); err != nil {
		t.Fatalf("footer is not JSON: %v", err)
	}
	if !footer.EndOfTransmission {
		t.Errorf("expected end_of_transmission")
	}
	if footer.TotalChunks != len(b.Chunks) {
		t.Errorf("total_chunks = %d, want %d", footer.TotalChunks, len(b.Chunks))
	}
	if footer.TotalBytes != b.DataBytes() {
		t.Errorf("total_bytes = %d, want %d", footer.TotalBytes, b.DataBytes())
	}
	if len(footer.Hash) != len("sha256_")+64 {
		t.Errorf("unexpected hash length %d", len(footer.Hash))
	}
}

func TestChunksArePaddedToNominalSize(t *testing.T) {
	b := payload.NewGenerator(payload.NewSource(3, fixedClock)).Generate(200_000)
	for _, c := range b.Chunks {
		if c.Size >= 2048 && len(c.Data) != c.Size {
			t.Errorf("chunk %d: nominal %d, serialized %d", c.Index, c.Size, len(c.Data))
		}
		if !json.Valid(c.Data) {
			t.Fatalf("chunk %d is not valid JSON", c.Index)
		}
	}
}

func TestChunkIndexesAreSequential(t *testing.T) {
	b := payload.NewGenerator(payload.NewSource(5, fixedClock)).Generate(60_000)
	for i, c := range b.Chunks {
		if c.Index != i {
			t.Fatalf("chunk %d has index %d", i, c.Index)
		}
		var rec struct {
			ChunkID int `json:"chunk_id"`
		}
		if err := json.Unmarshal(c.Data, &rec); err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if rec.ChunkID != i {
			t.Errorf("chunk %d carries chunk_id %d", i, rec.ChunkID)
		}
	}
}

func TestSeededGenerationIsDeterministic(t *testing.T) {
	a := payload.NewGenerator(payload.NewSource(99, fixedClock)).Generate(40_000)
	b := payload.NewGenerator(payload.NewSource(99, fixedClock)).Generate(40_000)

	pa, pb := a.Payloads(), b.Payloads()
	if len(pa) != len(pb) {
		t.Fatalf("payload counts differ: %d vs %d", len(pa), len(pb))
	}
	for i := range pa {
		if !bytes.Equal(pa[i], pb[i]) {
			t.Fatalf("payload %d differs between identical seeds", i)
		}
	}
}

func TestPayloadsOrder(t *testing.T) {
	b := payload.NewGenerator(payload.NewSource(11, fixedClock)).Generate(20_000)
	all := b.Payloads()
	if !bytes.Contains(all[0], []byte(`"request_id"`)) {
		t.Errorf("first payload is not the header")
	}
	if !bytes.Contains(all[len(all)-1], []byte(`"end_of_transmission":true`)) {
		t.Errorf("last payload is not the footer")
	}
	if b.TotalBytes() != b.DataBytes()+int64(len(b.Header)+len(b.Footer)) {
		t.Errorf("TotalBytes does not include header and footer")
	}
}

func TestMegabytesToBytes(t *testing.T) {
	if got := payload.MegabytesToBytes(0.01); got != 10486 {
		t.Errorf("MegabytesToBytes(0.01) = %d, want 10486", got)
	}
	if got := payload.MegabytesToBytes(5); got != 5*1024*1024 {
		t.Errorf("MegabytesToBytes(5) = %d", got)
	}
}
