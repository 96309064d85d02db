package simulator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/samcharles93/agentx/internal/trace"
)

// fakeSimulator reports the trace line count as the cycle count.
const fakeSimulator = `#!/bin/sh
[ "$1" = "-f" ] || { echo "usage: $0 -f config" >&2; exit 2; }
[ -f "$2" ] || { echo "missing config $2" >&2; exit 3; }
[ -f AgentX-NDP.trace ] || { echo "missing trace" >&2; exit 4; }
mkdir -p log
echo "log line" > log/run.log
echo "frontend: done"
echo "memory_system_cycles: $(wc -l < AgentX-NDP.trace | tr -d ' ')"
`

func writeScript(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
}

func simDir(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported")
	}
	dir := t.TempDir()
	writeScript(t, dir, DefaultBinary, script)
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("Frontend:\n  impl: LoadStoreTrace\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func sampleTrace() []trace.Command {
	return []trace.Command{
		{Op: trace.MACAB, Addr: 0},
		{Op: trace.MACAB, Addr: 1 << 32},
		{Op: trace.Barrier, Addr: 0},
	}
}

func TestRunnerRun(t *testing.T) {
	dir := simDir(t, fakeSimulator)
	res, err := Runner{Dir: dir}.Run(context.Background(), sampleTrace())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Cycles != 3 {
		t.Fatalf("cycles: want 3, got %d", res.Cycles)
	}
	if res.Commands != 3 || !strings.Contains(res.Output, "frontend: done") {
		t.Fatalf("unexpected result %+v", res)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultTraceName)); !os.IsNotExist(err) {
		t.Fatalf("trace should be removed, stat err=%v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "log")); !os.IsNotExist(err) {
		t.Fatalf("log dir should be removed, stat err=%v", err)
	}
}

func TestRunnerKeepArtifacts(t *testing.T) {
	dir := simDir(t, fakeSimulator)
	if _, err := (Runner{Dir: dir, KeepArtifacts: true}).Run(context.Background(), sampleTrace()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, DefaultTraceName))
	if err != nil {
		t.Fatalf("trace should be kept: %v", err)
	}
	if !strings.HasPrefix(string(data), "PIM_MACAB 0x00000000\n") {
		t.Fatalf("unexpected trace content %q", data)
	}
}

func TestRunnerMissingBinary(t *testing.T) {
	_, err := Runner{Dir: t.TempDir()}.Run(context.Background(), sampleTrace())
	if !errors.Is(err, ErrBinaryNotFound) {
		t.Fatalf("expected ErrBinaryNotFound, got %v", err)
	}
}

func TestRunnerFailure(t *testing.T) {
	dir := simDir(t, "#!/bin/sh\necho boom\nexit 7\n")
	_, err := Runner{Dir: dir}.Run(context.Background(), sampleTrace())
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Fatalf("error should carry simulator output: %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(dir, DefaultTraceName)); !os.IsNotExist(statErr) {
		t.Fatalf("trace should be removed after failure")
	}
}

func TestRunnerNoCycles(t *testing.T) {
	dir := simDir(t, "#!/bin/sh\necho nothing useful\n")
	_, err := Runner{Dir: dir}.Run(context.Background(), sampleTrace())
	if !errors.Is(err, ErrCyclesNotFound) {
		t.Fatalf("expected ErrCyclesNotFound, got %v", err)
	}
}

func TestParseCycles(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    int64
		wantErr bool
	}{
		{name: "simple", output: "memory_system_cycles: 1234\n", want: 1234},
		{name: "indented yaml", output: "MemorySystem:\n    memory_system_cycles: 98765\n", want: 98765},
		{name: "last wins", output: "memory_system_cycles: 1\nmemory_system_cycles: 2\n", want: 2},
		{name: "skips garbage", output: "memory_system_cycles: n/a\nmemory_system_cycles: 5\n", want: 5},
		{name: "missing", output: "total_cycles: 10\n", wantErr: true},
		{name: "empty", output: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCycles(tt.output)
			if tt.wantErr {
				if !errors.Is(err, ErrCyclesNotFound) {
					t.Fatalf("expected ErrCyclesNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("cycles: want %d, got %d", tt.want, got)
			}
		})
	}
}

func TestDecodeLatency(t *testing.T) {
	tests := []struct {
		cycles int64
		layers int
		want   time.Duration
	}{
		// 1e6 cycles * 0.3125 ns * 64 layers * 2 passes = 40 ms.
		{1_000_000, 64, 40 * time.Millisecond},
		// 36 layers of the 8B profile.
		{1_000_000, 36, 22500 * time.Microsecond},
		{8, 1, 5 * time.Nanosecond},
		{0, 80, 0},
	}
	for _, tc := range tests {
		r := Result{Cycles: tc.cycles}
		if got := r.DecodeLatency(tc.layers); got != tc.want {
			t.Fatalf("DecodeLatency(%d cycles, %d layers): want %v, got %v", tc.cycles, tc.layers, tc.want, got)
		}
	}
}
