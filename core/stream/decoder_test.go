package stream

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/woodman33/llmbridge/providers/ai"
)

type sampleChunk struct {
	Content string `json:"content"`
	Done    bool   `json:"done"`
}

func decodeSample(payload []byte) (*ai.ChatResponse, bool, error) {
	var chunk sampleChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, false, err
	}
	response := &ai.ChatResponse{Message: ai.Message{Role: ai.RoleAssistant, Content: chunk.Content}}
	if chunk.Done {
		response.FinishReason = ai.FinishReasonStop.Ptr()
	}
	return response, true, nil
}

func drain(t *testing.T, seq func(func(*ai.ChatResponse, error) bool)) ([]string, []error) {
	t.Helper()
	var contents []string
	var errs []error
	for chunk, err := range seq {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		contents = append(contents, chunk.Message.Content)
	}
	return contents, errs
}

func TestDecode_SkipsMalformedPayloads(t *testing.T) {
	body := "data: {\"content\":\"He\",\"done\":false}\n\n" +
		"data: not-json\n\n" +
		"data: {\"content\":\"llo\",\"done\":true}\n\n" +
		"data: [DONE]\n\n"

	contents, errs := drain(t, Decode(context.Background(), strings.NewReader(body), decodeSample))

	assert.Empty(t, errs)
	assert.Equal(t, []string{"He", "llo"}, contents)
	assert.Equal(t, "Hello", strings.Join(contents, ""))
}

func TestDecode_Framing(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []string
	}{
		{
			name: "crlf line endings",
			body: "data: {\"content\":\"a\"}\r\n\r\ndata: {\"content\":\"b\"}\r\n\r\n",
			want: []string{"a", "b"},
		},
		{
			name: "no space after field name",
			body: "data:{\"content\":\"a\"}\n\n",
			want: []string{"a"},
		},
		{
			name: "comments and other fields ignored",
			body: ": keep-alive\nevent: message\nid: 7\nretry: 100\ndata: {\"content\":\"a\"}\n\n",
			want: []string{"a"},
		},
		{
			name: "empty payloads skipped",
			body: "data:\n\ndata: \n\ndata: {\"content\":\"a\"}\n\n",
			want: []string{"a"},
		},
		{
			name: "ends at eof without trailing newline",
			body: "data: {\"content\":\"a\"}\n\ndata: {\"content\":\"b\"}",
			want: []string{"a", "b"},
		},
		{
			name: "nothing after done is read",
			body: "data: {\"content\":\"a\"}\n\ndata: [DONE]\n\ndata: {\"content\":\"late\"}\n\n",
			want: []string{"a"},
		},
		{
			name: "empty body",
			body: "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contents, errs := drain(t, Decode(context.Background(), strings.NewReader(tt.body), decodeSample))
			assert.Empty(t, errs)
			assert.Equal(t, tt.want, contents)
		})
	}
}

func TestDecode_DecoderMaySkipPayloads(t *testing.T) {
	body := "data: {\"content\":\"ping\"}\n\ndata: {\"content\":\"a\"}\n\n"
	skipPings := func(payload []byte) (*ai.ChatResponse, bool, error) {
		chunk, _, err := decodeSample(payload)
		if err != nil {
			return nil, false, err
		}
		return chunk, chunk.Message.Content != "ping", nil
	}

	contents, _ := drain(t, Decode(context.Background(), strings.NewReader(body), skipPings))

	assert.Equal(t, []string{"a"}, contents)
}

func TestDecode_OversizedLineSkipped(t *testing.T) {
	huge := "data: {\"content\":\"" + strings.Repeat("x", MaxLineSize) + "\"}\n\n"
	body := huge + "data: {\"content\":\"after\"}\n\n"

	contents, errs := drain(t, Decode(context.Background(), strings.NewReader(body), decodeSample))

	assert.Empty(t, errs)
	assert.Equal(t, []string{"after"}, contents)
}

func TestDecode_ReadErrorYieldedOnce(t *testing.T) {
	severed := errors.New("connection reset by peer")
	reader := io.MultiReader(
		strings.NewReader("data: {\"content\":\"a\"}\n\n"),
		iotest.ErrReader(severed),
	)

	contents, errs := drain(t, Decode(context.Background(), reader, decodeSample))

	assert.Equal(t, []string{"a"}, contents)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ai.ErrNetworkError)
	assert.ErrorIs(t, errs[0], severed)
}

func TestDecode_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	body := "data: {\"content\":\"a\"}\n\ndata: {\"content\":\"b\"}\n\n"

	var contents []string
	var errs []error
	for chunk, err := range Decode(ctx, strings.NewReader(body), decodeSample) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		contents = append(contents, chunk.Message.Content)
		cancel()
	}

	assert.Equal(t, []string{"a"}, contents)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ai.ErrUnknownError)
	assert.ErrorIs(t, errs[0], context.Canceled)
}

func TestDecode_EarlyBreakStopsReading(t *testing.T) {
	reads := 0
	reader := readerFunc(func(p []byte) (int, error) {
		reads++
		if reads > 1 {
			return 0, errors.New("read after break")
		}
		return copy(p, "data: {\"content\":\"a\"}\n\n"), nil
	})

	for chunk := range Decode(context.Background(), reader, decodeSample) {
		assert.Equal(t, "a", chunk.Message.Content)
		break
	}

	assert.Equal(t, 1, reads)
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
