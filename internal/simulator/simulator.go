// Package simulator drives the external AgentX memory-system simulator.
//
// The simulator reads a PIM trace named in its YAML configuration, runs it
// and prints a report that includes a memory_system_cycles line. The runner
// places the trace where the configuration expects it, runs the binary in
// its own directory and removes the artifacts afterwards.
package simulator

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/samcharles93/agentx/internal/logger"
	"github.com/samcharles93/agentx/internal/trace"
)

const (
	DefaultBinary     = "AgentX"
	DefaultConfigFile = "AgentX.yaml"
	DefaultTraceName  = "AgentX-NDP.trace"

	cyclesKey = "memory_system_cycles"
	logDir    = "log"

	// tckFemtos is one LPDDR clock at 6400 MT/s (0.3125 ns).
	tckFemtos = 312500

	// tracePassesPerToken is how many runs of the per-layer trace one
	// decoded token costs.
	tracePassesPerToken = 2
)

var (
	ErrBinaryNotFound = errors.New("simulator binary not found")
	ErrCyclesNotFound = errors.New("memory_system_cycles not found in simulator output")
)

// Runner runs one trace through the simulator per call. The zero value
// runs ./AgentX -f AgentX.yaml in the current directory.
type Runner struct {
	Dir        string
	Binary     string
	ConfigFile string
	TraceName  string

	// KeepArtifacts leaves the trace and the simulator log directory in place.
	KeepArtifacts bool
}

// Result is the simulator's verdict on one trace.
type Result struct {
	Cycles   int64         `json:"memory_system_cycles"`
	Elapsed  time.Duration `json:"elapsed"`
	Output   string        `json:"-"`
	Commands int           `json:"commands"`
}

// DecodeLatency is the simulated time of one decoded token across layers:
// cycles × tCK × layers × 2.
func (r Result) DecodeLatency(layers int) time.Duration {
	femtos := r.Cycles * int64(layers) * tracePassesPerToken * tckFemtos
	return time.Duration(femtos / 1_000_000)
}

func (r Runner) withDefaults() Runner {
	if r.Dir == "" {
		r.Dir = "."
	}
	if r.Binary == "" {
		r.Binary = DefaultBinary
	}
	if r.ConfigFile == "" {
		r.ConfigFile = DefaultConfigFile
	}
	if r.TraceName == "" {
		r.TraceName = DefaultTraceName
	}
	return r
}

// BinaryPath is the absolute or Dir-relative path of the simulator binary.
func (r Runner) BinaryPath() string {
	r = r.withDefaults()
	if filepath.IsAbs(r.Binary) {
		return r.Binary
	}
	return filepath.Join(r.Dir, r.Binary)
}

// Run writes cmds as the simulator's input trace, runs it and returns the
// reported cycle count.
func (r Runner) Run(ctx context.Context, cmds []trace.Command) (Result, error) {
	r = r.withDefaults()
	log := logger.FromContext(ctx).With("component", "simulator")

	bin := r.BinaryPath()
	if info, err := os.Stat(bin); err != nil || info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s", ErrBinaryNotFound, bin)
	}

	tracePath := filepath.Join(r.Dir, r.TraceName)
	if err := trace.WriteFile(tracePath, cmds); err != nil {
		return Result{}, err
	}
	if !r.KeepArtifacts {
		defer r.cleanup(log, tracePath)
	}

	absBin, err := filepath.Abs(bin)
	if err != nil {
		return Result{}, fmt.Errorf("simulator: resolve binary: %w", err)
	}
	cmd := exec.CommandContext(ctx, absBin, "-f", r.ConfigFile)
	cmd.Dir = r.Dir

	log.Debug("running simulator", "binary", bin, "config", r.ConfigFile, "commands", len(cmds))
	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)
	if err != nil {
		return Result{}, fmt.Errorf("simulator: %w\ncommand: %s\noutput:\n%s", err, strings.Join(cmd.Args, " "), out)
	}

	cycles, err := ParseCycles(string(out))
	if err != nil {
		return Result{}, fmt.Errorf("%w\noutput:\n%s", err, out)
	}
	log.Info("simulation finished", "cycles", cycles, "elapsed", elapsed.Round(time.Millisecond))
	return Result{Cycles: cycles, Elapsed: elapsed, Output: string(out), Commands: len(cmds)}, nil
}

func (r Runner) cleanup(log logger.Logger, tracePath string) {
	if err := os.Remove(tracePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("remove trace", "path", tracePath, "error", err)
	}
	if err := os.RemoveAll(filepath.Join(r.Dir, logDir)); err != nil {
		log.Warn("remove simulator log", "error", err)
	}
}

// ParseCycles extracts the cycle count from simulator output. The value is
// the last field of the last line mentioning memory_system_cycles.
func ParseCycles(output string) (int64, error) {
	var (
		cycles int64
		found  bool
	)
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := sc.Text()
		if !strings.Contains(line, cyclesKey) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		v, err := strconv.ParseInt(fields[len(fields)-1], 10, 64)
		if err != nil {
			continue
		}
		cycles, found = v, true
	}
	if !found {
		return 0, ErrCyclesNotFound
	}
	return cycles, nil
}
