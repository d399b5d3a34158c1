package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/klauern/treesync/internal/sync"
	"github.com/klauern/treesync/internal/ui"
)

func TestParseAnswer(t *testing.T) {
	tests := map[string]struct {
		input  string
		want   sync.Answer
		wantOK bool
	}{
		"empty is no":      {input: "\n", want: sync.AnswerNo, wantOK: true},
		"n":                {input: "n\n", want: sync.AnswerNo, wantOK: true},
		"yes":              {input: "yes\n", want: sync.AnswerYes, wantOK: true},
		"upper Y":          {input: "Y", want: sync.AnswerYes, wantOK: true},
		"always":           {input: "a", want: sync.AnswerAlways, wantOK: true},
		"never":            {input: " v ", want: sync.AnswerNever, wantOK: true},
		"quit":             {input: "quit", want: sync.AnswerQuit, wantOK: true},
		"unknown rejected": {input: "maybe", wantOK: false},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, ok := parseAnswer(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("parseAnswer(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("parseAnswer(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestPrompter_Decide(t *testing.T) {
	ui.DisableColors()
	defer ui.EnableColors()

	q := sync.Question{Op: sync.OpDelete, Target: "/dst/old.txt"}

	tests := map[string]struct {
		input   string
		want    sync.Answer
		wantErr bool
		retries int
	}{
		"yes":                           {input: "y\n", want: sync.AnswerYes},
		"retry after invalid":           {input: "what\nv\n", want: sync.AnswerNever, retries: 1},
		"answer without newline at EOF": {input: "q", want: sync.AnswerQuit},
		"eof without answer":            {input: "", wantErr: true},
		"eof after invalid":             {input: "hmm", wantErr: true},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			p := NewPrompter(strings.NewReader(tt.input), &out)

			got, err := p.Decide(context.Background(), q)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Decide() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("Decide() = %s, want %s", got, tt.want)
			}
			if !strings.Contains(out.String(), "Delete /dst/old.txt?") {
				t.Errorf("prompt output = %q, want the question", out.String())
			}
			if n := strings.Count(out.String(), "Invalid choice"); n != tt.retries {
				t.Errorf("retries = %d, want %d", n, tt.retries)
			}
		})
	}
}

func TestPrompter_BeforePromptAndCancel(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("y\n"), &out)
	cleared := 0
	p.beforePrompt = func() { cleared++ }

	if _, err := p.Decide(context.Background(), sync.Question{Op: sync.OpOverwrite}); err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if cleared != 1 {
		t.Errorf("beforePrompt ran %d times, want 1", cleared)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Decide(ctx, sync.Question{Op: sync.OpOverwrite}); err == nil {
		t.Error("Decide() on a cancelled context should fail")
	}
}
