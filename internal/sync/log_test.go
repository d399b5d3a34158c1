package sync

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/klauern/treesync/internal/logging"
	"github.com/klauern/treesync/internal/util"
)

func TestRun_LogsToContextLogger(t *testing.T) {
	h := newHarness(t)
	h.tree()

	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: logging.LevelDebug, Output: &buf}).With("run", "nightly")
	ctx := logging.NewContext(context.Background(), logger)

	_, err := h.run(ctx, testConfig())
	util.AssertNoError(t, err)

	out := buf.String()
	for _, want := range []string{"starting sync", "run=nightly", "copy"} {
		if !strings.Contains(out, want) {
			t.Errorf("context logger output missing %q:\n%s", want, out)
		}
	}
}
