package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/asklens/asklens/internal/core/answer"
	"github.com/asklens/asklens/internal/metrics"
	"github.com/asklens/asklens/internal/observability"
)

// SearchKeyHeader carries a per-request search credential override.
const SearchKeyHeader = "x-firecrawl-key"

// requestPreviewBytes limits how much of the request body reaches debug logs.
const requestPreviewBytes = 100

// NewAnswerHandler returns the POST handler for grounded answers.
//
// Any failure before the first token is written maps to a flat 500 JSON body
// {"error": "<message>"} regardless of cause. Once streaming has begun the
// status is already sent, so a mid-stream failure truncates the response.
func NewAnswerHandler(p *answer.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := observability.ServerLogger

		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeAnswerError(w, err.Error())
			return
		}

		if logger != nil {
			preview := body
			if len(preview) > requestPreviewBytes {
				preview = preview[:requestPreviewBytes]
			}
			logger.Debug("Answer request received",
				zap.ByteString("body_preview", preview),
				zap.Int("body_bytes", len(body)))
		}

		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			writeAnswerError(w, err.Error())
			return
		}

		result, err := p.Run(r.Context(), payload, answer.Options{
			SearchKey: r.Header.Get(SearchKeyHeader),
		})
		if err != nil {
			if logger != nil {
				logger.Warn("Answer pipeline failed", zap.Error(err))
			}
			writeAnswerError(w, err.Error())
			return
		}
		defer result.Stream.Close() // nolint:errcheck // best-effort cleanup

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)

		flusher, _ := w.(http.Flusher)
		start := time.Now()
		var chunks int64

		for {
			chunk, err := result.Stream.Recv()
			if err != nil {
				if !errors.Is(err, io.EOF) && logger != nil {
					// Status already sent; the client sees a truncated answer.
					logger.Warn("Answer stream interrupted",
						zap.Error(err),
						zap.Int64("chunks_sent", chunks))
				}
				break
			}
			if _, err := io.WriteString(w, chunk); err != nil {
				if logger != nil {
					logger.Debug("Client disconnected during answer stream", zap.Error(err))
				}
				break
			}
			chunks++
			if flusher != nil {
				flusher.Flush()
			}
		}

		metrics.RecordStreamChunks(chunks, time.Since(start))
	}
}

// writeAnswerError writes the flat error shape the answer endpoint uses.
// It is intentionally not the envelope the rest of the API speaks.
func writeAnswerError(w http.ResponseWriter, message string) {
	body, err := json.Marshal(map[string]string{"error": message})
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write(body)
}
