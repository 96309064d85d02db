package trace

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
)

const addrDigits = 8

// appendCommand renders c the way "%s 0x%08x\n" would, without fmt.
func appendCommand(buf []byte, c Command) []byte {
	buf = append(buf, c.Op.String()...)
	buf = append(buf, " 0x"...)
	var digits [16]byte
	hexAddr := strconv.AppendUint(digits[:0], c.Addr, 16)
	for i := len(hexAddr); i < addrDigits; i++ {
		buf = append(buf, '0')
	}
	buf = append(buf, hexAddr...)
	return append(buf, '\n')
}

// Write serialises cmds to w, one command per line.
func Write(w io.Writer, cmds []Command) error {
	bw := bufio.NewWriterSize(w, 64*1024)
	line := make([]byte, 0, 32)
	for _, c := range cmds {
		line = appendCommand(line[:0], c)
		if _, err := bw.Write(line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteFile writes the trace to path atomically. The data lands in a
// sibling temp file that is renamed into place only after a successful
// flush and sync, so path never holds a partial trace.
func WriteFile(path string, cmds []Command) (err error) {
	dir := filepath.Dir(path)
	tmpPath := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create trace: %w", err)
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err = Write(f, cmds); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	if err = f.Sync(); err != nil {
		return fmt.Errorf("sync trace: %w", err)
	}
	if err = f.Close(); err != nil {
		return fmt.Errorf("close trace: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename trace: %w", err)
	}
	return nil
}

// Digest returns the hex SHA-256 of the serialised trace.
func Digest(cmds []Command) string {
	h := sha256.New()
	// hash.Hash writes never fail.
	_ = Write(h, cmds)
	return hex.EncodeToString(h.Sum(nil))
}
