package orchestrator_test

import (
	"condense/internal/orchestrator"
	"condense/internal/summarizer"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordingSummarizer tags every summary with the text it received and
// records every call. Texts listed in delays are held back before answering.
type recordingSummarizer struct {
	mu     sync.Mutex
	inputs []string
	delays map[string]time.Duration
	fail   map[string]error
	short  bool
	echo   bool
}

func (s *recordingSummarizer) Summarize(ctx context.Context, input summarizer.Input) (string, error) {
	s.mu.Lock()
	s.inputs = append(s.inputs, input.Text)
	delay := s.delays[input.Text]
	err := s.fail[input.Text]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	if err != nil {
		return "", err
	}

	if s.short {
		return "S.", nil
	}

	if s.echo {
		return input.Text, nil
	}

	return "sum(" + input.Text + ")", nil
}

func (s *recordingSummarizer) calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.inputs...)
}

func TestSummarizeEmptyInputSkipsBackend(t *testing.T) {
	stub := &recordingSummarizer{}
	o := orchestrator.New(stub, orchestrator.Config{MaxChunkSize: 100}, slog.Default())

	for _, text := range []string{"", "   \n\t"} {
		result, err := o.Summarize(context.Background(), orchestrator.Request{Text: text})
		if err != nil {
			t.Fatalf("summarize: %v", err)
		}

		if result.Summary != "" || len(result.Chunks) != 0 {
			t.Fatalf("expected empty result, got %+v", result)
		}
	}

	if calls := stub.calls(); len(calls) != 0 {
		t.Fatalf("expected no backend calls, got %q", calls)
	}
}

func TestSummarizeSingleChunk(t *testing.T) {
	stub := &recordingSummarizer{}
	o := orchestrator.New(stub, orchestrator.Config{MaxChunkSize: 100}, slog.Default())

	result, err := o.Summarize(context.Background(), orchestrator.Request{Text: "A. B. C."})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if result.Summary != "sum(sum(A. B. C.))" {
		t.Fatalf("unexpected summary: %q", result.Summary)
	}

	if calls := stub.calls(); len(calls) != 2 {
		t.Fatalf("expected chunk call plus final call, got %q", calls)
	}
}

func TestSummarizePreservesChunkOrder(t *testing.T) {
	stub := &recordingSummarizer{
		delays: map[string]time.Duration{
			"A.": 60 * time.Millisecond,
			"B.": 30 * time.Millisecond,
		},
	}
	o := orchestrator.New(stub, orchestrator.Config{MaxChunkSize: 4, MaxParallelism: 3}, slog.Default())

	result, err := o.Summarize(context.Background(), orchestrator.Request{Text: "A. B. C."})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	want := []string{"sum(A.)", "sum(B.)", "sum(C.)"}
	for i := range want {
		if result.ChunkSummaries[i] != want[i] {
			t.Fatalf("unexpected chunk summaries: got %q want %q", result.ChunkSummaries, want)
		}
	}

	calls := stub.calls()
	final := calls[len(calls)-1]
	if final != "sum(A.) sum(B.) sum(C.)" {
		t.Fatalf("unexpected final input: %q", final)
	}

	if len(calls) != 4 {
		t.Fatalf("expected 4 backend calls, got %d", len(calls))
	}
}

func TestSummarizeAbortsOnChunkFailure(t *testing.T) {
	boom := errors.New("backend down")
	stub := &recordingSummarizer{fail: map[string]error{"B.": boom}}
	o := orchestrator.New(stub, orchestrator.Config{MaxChunkSize: 4}, slog.Default())

	result, err := o.Summarize(context.Background(), orchestrator.Request{Text: "A. B. C."})
	if !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}

	if result != nil {
		t.Fatalf("expected no result on failure, got %+v", result)
	}

	if !strings.Contains(err.Error(), "summarize chunk 1") {
		t.Fatalf("expected failing chunk index in error, got %q", err.Error())
	}

	for _, call := range stub.calls() {
		if strings.HasPrefix(call, "sum(") {
			t.Fatalf("final summary must not be requested after a failure, got call %q", call)
		}
	}
}

func TestSummarizeReduceRounds(t *testing.T) {
	var b strings.Builder
	for i := range 12 {
		fmt.Fprintf(&b, "Sentence number %02d is here. ", i)
	}
	text := b.String()

	t.Run("Disabled", func(t *testing.T) {
		stub := &recordingSummarizer{}
		o := orchestrator.New(stub, orchestrator.Config{MaxChunkSize: 40}, slog.Default())

		result, err := o.Summarize(context.Background(), orchestrator.Request{Text: text})
		if err != nil {
			t.Fatalf("summarize: %v", err)
		}

		if result.ReduceRounds != 0 {
			t.Fatalf("expected no reduce rounds, got %d", result.ReduceRounds)
		}

		if calls := stub.calls(); len(calls) != len(result.Chunks)+1 {
			t.Fatalf("expected one call per chunk plus final, got %d for %d chunks", len(calls), len(result.Chunks))
		}
	})

	t.Run("Shrinks oversized join", func(t *testing.T) {
		stub := &recordingSummarizer{short: true}
		o := orchestrator.New(stub, orchestrator.Config{MaxChunkSize: 10, MaxReduceRounds: 5}, slog.Default())

		result, err := o.Summarize(context.Background(), orchestrator.Request{Text: text})
		if err != nil {
			t.Fatalf("summarize: %v", err)
		}

		if result.ReduceRounds == 0 {
			t.Fatalf("expected at least one reduce round")
		}

		calls := stub.calls()
		final := calls[len(calls)-1]
		if len(final) > 10 {
			t.Fatalf("expected final input within chunk bound, got %q", final)
		}
	})

	t.Run("Stops when splitting does not help", func(t *testing.T) {
		stub := &recordingSummarizer{echo: true}
		o := orchestrator.New(stub, orchestrator.Config{MaxChunkSize: 40, MaxReduceRounds: 5}, slog.Default())

		result, err := o.Summarize(context.Background(), orchestrator.Request{Text: text})
		if err != nil {
			t.Fatalf("summarize: %v", err)
		}

		if result.ReduceRounds != 0 {
			t.Fatalf("expected reduce to stop when summaries do not shrink, got %d rounds", result.ReduceRounds)
		}
	})
}

func TestSummarizeSkipsFinalCallForBlankJoin(t *testing.T) {
	stub := &blankSummarizer{}
	o := orchestrator.New(stub, orchestrator.Config{MaxChunkSize: 4}, slog.Default())

	result, err := o.Summarize(context.Background(), orchestrator.Request{Text: "A. B."})
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}

	if result.Summary != "" {
		t.Fatalf("expected empty summary, got %q", result.Summary)
	}

	if stub.calls != 2 {
		t.Fatalf("expected only chunk calls, got %d", stub.calls)
	}
}

type blankSummarizer struct {
	mu    sync.Mutex
	calls int
}

func (s *blankSummarizer) Summarize(context.Context, summarizer.Input) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++

	return "", nil
}
