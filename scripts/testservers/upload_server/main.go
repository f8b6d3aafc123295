// Command upload_server is a local target for chunkfire. It accepts chunked uploads
// on /upload/stream and /upload/benchmark and answers with a JSON receipt.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/torosent/chunkfire/internal/logging"
)

type replyMode string

const (
	replyLength  replyMode = "length"
	replyChunked replyMode = "chunked"
	replyNone    replyMode = "none"
)

func main() {
	port := pflag.Int("port", 8080, "Listening port")
	reply := pflag.String("reply", string(replyLength), "Response framing: length, chunked or none")
	pflag.Parse()

	log := logging.New(os.Stderr, true)
	mode := replyMode(*reply)
	switch mode {
	case replyLength, replyChunked, replyNone:
	default:
		log.Fatal().Str("reply", *reply).Msg("unknown reply mode")
	}

	mux := http.NewServeMux()
	handler := uploadHandler(mode, log)
	mux.Handle("/upload/stream", handler)
	mux.Handle("/upload/benchmark", handler)

	addr := fmt.Sprintf(":%d", *port)
	log.Info().Str("addr", addr).Str("reply", *reply).Msg("upload server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func uploadHandler(mode replyMode, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			respondJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "method not allowed"}, replyLength)
			return
		}
		start := time.Now()
		n, err := io.Copy(io.Discard, r.Body)
		if err != nil {
			log.Warn().Err(err).Int64("bytes", n).Msg("upload aborted")
			respondJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()}, replyLength)
			return
		}

		elapsed := time.Since(start)
		log.Info().
			Str("path", r.URL.Path).
			Int64("bytes", n).
			Str("chunks", r.Header.Get("X-Chunk-Count")).
			Dur("elapsed", elapsed).
			Msg("upload received")

		receipt := map[string]any{
			"status":          "ok",
			"path":            r.URL.Path,
			"received_bytes":  n,
			"expected_bytes":  r.Header.Get("X-Expected-Size"),
			"declared_chunks": r.Header.Get("X-Chunk-Count"),
			"duration_ms":     elapsed.Milliseconds(),
		}
		respondJSON(w, http.StatusOK, receipt, mode)
	})
}

// respondJSON writes payload framed according to mode. The net/http server picks
// chunked encoding itself when no Content-Length is set and the body is flushed.
func respondJSON(w http.ResponseWriter, status int, payload any, mode replyMode) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch mode {
	case replyNone:
		w.Header().Set("Content-Length", "0")
		w.WriteHeader(status)
	case replyChunked:
		w.WriteHeader(status)
		half := len(body) / 2
		_, _ = w.Write(body[:half])
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		_, _ = w.Write(body[half:])
	default:
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.WriteHeader(status)
		_, _ = w.Write(body)
	}
}
