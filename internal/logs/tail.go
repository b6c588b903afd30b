package logs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// TailOptions controls how much history Tail prints and whether it keeps
// streaming afterwards.
type TailOptions struct {
	// Limit is the number of trailing lines printed on start. Zero prints
	// no history, which in follow mode streams only lines appended later.
	Limit int
	// Follow keeps polling for appended lines until the context ends.
	Follow bool
	// Poll is the follow-mode polling interval. Zero selects 250ms.
	Poll time.Duration
}

// Tail writes the last Limit lines of the file at path to out. In follow
// mode it then streams appended lines until ctx is cancelled. A missing
// file reads as empty so follow mode can wait for the first scan to
// create it.
func Tail(ctx context.Context, path string, opts TailOptions, out io.Writer) error {
	lines, offset, err := lastLines(path, opts.Limit)
	if err != nil {
		return err
	}
	if err := writeLines(out, lines); err != nil {
		return err
	}
	if !opts.Follow {
		return nil
	}

	poll := opts.Poll
	if poll <= 0 {
		poll = 250 * time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		var appended []string
		appended, offset, err = linesFrom(path, offset)
		if err != nil {
			return err
		}
		if err := writeLines(out, appended); err != nil {
			return err
		}
	}
}

// lastLines returns up to limit trailing lines of the file plus the offset
// where follow mode should resume reading. It holds at most limit lines in
// memory regardless of file size.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		offset, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, offset, nil
	}

	ring := make([]string, limit)
	count := 0
	next := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		ring[next] = scanner.Text()
		next = (next + 1) % limit
		if count < limit {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	offset, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}

	lines := make([]string, 0, count)
	start := 0
	if count == limit {
		start = next
	}
	for i := 0; i < count; i++ {
		lines = append(lines, ring[(start+i)%limit])
	}
	return lines, offset, nil
}

// linesFrom returns the complete lines appended after offset. A trailing
// line still missing its newline stays unread until the writer finishes
// it, so concurrent appends never surface half a record.
func linesFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, 0, nil
		}
		return nil, offset, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, offset, fmt.Errorf("stat log file: %w", err)
	}
	if info.Size() < offset {
		// The file shrank under us, likely rotated or truncated.
		offset = 0
	}
	if info.Size() == offset {
		return nil, offset, nil
	}

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, fmt.Errorf("seek log file: %w", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, offset, fmt.Errorf("read log file: %w", err)
	}
	end := bytes.LastIndexByte(data, '\n')
	if end < 0 {
		return nil, offset, nil
	}
	return strings.Split(string(data[:end]), "\n"), offset + int64(end) + 1, nil
}

func writeLines(out io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
	}
	return nil
}
