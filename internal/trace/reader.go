package trace

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Read parses a trace produced by Write. Every line must be in the exact
// form Write emits: lowercase hex, single space, no blank lines. A CRLF
// ending is tolerated.
func Read(r io.Reader) ([]Command, error) {
	var cmds []Command
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		cmd, err := parseLine(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		cmds = append(cmds, cmd)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return cmds, nil
}

func parseLine(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return Command{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	op, err := ParseOpcode(fields[0])
	if err != nil {
		return Command{}, err
	}
	hexAddr, ok := strings.CutPrefix(fields[1], "0x")
	if !ok || len(hexAddr) < addrDigits {
		return Command{}, fmt.Errorf("%w: address %q", ErrMalformedLine, fields[1])
	}
	addr, err := strconv.ParseUint(hexAddr, 16, 64)
	if err != nil {
		return Command{}, fmt.Errorf("%w: address %q: %v", ErrMalformedLine, fields[1], err)
	}
	cmd := Command{Op: op, Addr: addr}
	if canon := appendCommand(nil, cmd); string(canon[:len(canon)-1]) != line {
		return Command{}, fmt.Errorf("%w: non-canonical line %q", ErrMalformedLine, line)
	}
	return cmd, nil
}

// ReadDigest parses r like Read and also returns the sha256 of the raw
// bytes consumed. For a file written by Write it equals Digest of the
// parsed commands.
func ReadDigest(r io.Reader) ([]Command, string, error) {
	h := sha256.New()
	cmds, err := Read(io.TeeReader(r, h))
	if err != nil {
		return nil, "", err
	}
	return cmds, hex.EncodeToString(h.Sum(nil)), nil
}
