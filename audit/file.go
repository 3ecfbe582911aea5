package audit

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/netrixframework/interop/types"
)

// GenesisHash is the prev_hash of the first record in a new audit file
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

var errBrokenChain = errors.New("audit: broken chain")

// fileRecord is one line of the audit file
type fileRecord struct {
	Event    *types.InteropEvent `json:"event"`
	PrevHash string              `json:"prev_hash"`
}

// FileSink is an append-only JSONL audit log. Every line carries the hash of
// the line before it so that edits, deletions and insertions are detectable.
type FileSink struct {
	path     string
	file     *os.File
	prevHash string
	closed   bool
	mu       sync.Mutex
}

// OpenFileSink opens or creates the audit file at path, continuing an existing chain
func OpenFileSink(path string) (*FileSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	prevHash := GenesisHash
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		last, err := lastLine(path)
		if err != nil {
			return nil, err
		}
		if len(last) > 0 {
			prevHash = HashLine(last)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}
	return &FileSink{
		path:     path,
		file:     file,
		prevHash: prevHash,
	}, nil
}

func lastLine(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audit: read existing log: %w", err)
	}
	defer f.Close()

	var last []byte
	err = eachLine(f, func(line []byte) error {
		last = append(last[:0], line...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("audit: scan existing log: %w", err)
	}
	return last, nil
}

// eachLine calls fn with every non-empty line of r, without the newline.
// Lines are not length limited.
func eachLine(r io.Reader, fn func(line []byte) error) error {
	reader := bufio.NewReaderSize(r, 64*1024)
	for {
		line, err := reader.ReadBytes('\n')
		line = bytes.TrimRight(line, "\r\n")
		if len(line) > 0 {
			if ferr := fn(line); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// Record implements Sink
func (f *FileSink) Record(_ context.Context, event *types.InteropEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}

	line, err := json.Marshal(fileRecord{Event: event, PrevHash: f.prevHash})
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}
	if _, err := f.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write event: %w", err)
	}
	if err := f.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}
	f.prevHash = HashLine(line)
	return nil
}

// Path returns the location of the audit file
func (f *FileSink) Path() string {
	return f.path
}

// Close closes the underlying file
func (f *FileSink) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	return f.file.Close()
}

// HashLine returns "sha256:<hex>" of the given bytes
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}

// VerifyResult holds the outcome of a hash chain verification
type VerifyResult struct {
	Valid     bool   `json:"valid"`
	Lines     int    `json:"lines"`
	Error     string `json:"error,omitempty"`
	ErrorLine int    `json:"error_line,omitempty"`
}

// Verify reads an audit file and checks the hash chain, reporting the first broken link
func Verify(path string) VerifyResult {
	f, err := os.Open(path)
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("open: %v", err)}
	}
	defer f.Close()

	lineNum := 0
	expected := GenesisHash
	var broken *VerifyResult
	err = eachLine(f, func(line []byte) error {
		lineNum++
		var record fileRecord
		if err := json.Unmarshal(line, &record); err != nil {
			broken = &VerifyResult{
				Error:     fmt.Sprintf("parse error: %v", err),
				ErrorLine: lineNum,
			}
			return errBrokenChain
		}
		if record.PrevHash != expected {
			broken = &VerifyResult{
				Error:     fmt.Sprintf("hash mismatch: expected %s, got %s", expected, record.PrevHash),
				ErrorLine: lineNum,
			}
			return errBrokenChain
		}
		expected = HashLine(line)
		return nil
	})
	if broken != nil {
		return *broken
	}
	if err != nil {
		return VerifyResult{Error: fmt.Sprintf("read: %v", err)}
	}
	return VerifyResult{Valid: true, Lines: lineNum}
}
