package stream

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"iter"

	"github.com/woodman33/llmbridge/internal/transport"
	"github.com/woodman33/llmbridge/internal/utils"
	"github.com/woodman33/llmbridge/providers/ai"
	"github.com/woodman33/llmbridge/providers/observability"
)

// MaxLineSize bounds a single SSE line (1 MB). Longer lines are discarded
// like any other undecodable payload.
const MaxLineSize = 1 << 20

// DoneSentinel is the payload that ends an OpenAI-style stream.
const DoneSentinel = "[DONE]"

var dataPrefix = []byte("data:")

// ChunkDecoder turns one payload into a partial response. It returns
// ok=false for payloads that carry nothing to emit (keep-alives, bookkeeping
// events) and an error for payloads it cannot parse; both are skipped.
type ChunkDecoder func(payload []byte) (chunk *ai.ChatResponse, ok bool, err error)

// Decode returns a single-use sequence of partial responses read from r.
// Chunks are emitted exactly in input order, one per pull, with no buffering
// beyond the current line. The sequence ends cleanly at [DONE] or EOF; a read
// failure (including cancellation of ctx) is yielded once as a classified
// *ai.ProviderError and ends the sequence.
func Decode(ctx context.Context, r io.Reader, decode ChunkDecoder) iter.Seq2[*ai.ChatResponse, error] {
	return func(yield func(*ai.ChatResponse, error) bool) {
		observer := observability.ObserverFromContext(ctx)
		reader := bufio.NewReaderSize(r, 64*1024)

		for {
			if err := ctx.Err(); err != nil {
				yield(nil, transport.Classify(ctx, err))
				return
			}

			line, tooLong, readErr := readLine(reader)
			if readErr != nil && !errors.Is(readErr, io.EOF) {
				yield(nil, transport.Classify(ctx, readErr))
				return
			}

			payload, isData := dataPayload(line)
			switch {
			case tooLong:
				if observer != nil {
					observer.Debug(ctx, "skipping oversized stream line",
						observability.Int(observability.AttrHTTPResponseSize, MaxLineSize))
				}
			case !isData || len(payload) == 0:
			case string(payload) == DoneSentinel:
				return
			default:
				chunk, ok, err := decode(payload)
				if err != nil {
					if observer != nil {
						observer.Debug(ctx, "skipping malformed stream chunk",
							observability.String(observability.AttrStreamPayload, utils.Preview(string(payload), 200)),
							observability.Error(err))
					}
				} else if ok && chunk != nil {
					if !yield(chunk, nil) {
						return
					}
				}
			}

			if readErr != nil {
				// io.EOF: natural end of stream after the final line.
				return
			}
		}
	}
}

// readLine reads one line without its terminator. Lines longer than
// MaxLineSize are consumed and reported with tooLong=true.
func readLine(reader *bufio.Reader) ([]byte, bool, error) {
	var line []byte
	tooLong := false
	for {
		fragment, isPrefix, err := reader.ReadLine()
		if !tooLong {
			if len(line)+len(fragment) > MaxLineSize {
				tooLong = true
				line = nil
			} else {
				line = append(line, fragment...)
			}
		}
		if err != nil {
			return line, tooLong, err
		}
		if !isPrefix {
			return line, tooLong, nil
		}
	}
}

// dataPayload strips the "data:" field name and one optional leading space.
func dataPayload(line []byte) ([]byte, bool) {
	if !bytes.HasPrefix(line, dataPrefix) {
		return nil, false
	}
	payload := line[len(dataPrefix):]
	payload = bytes.TrimPrefix(payload, []byte(" "))
	return bytes.TrimSpace(payload), true
}
