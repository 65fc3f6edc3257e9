package buffer

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/nordlicht/waypost/internal/domain"
	"github.com/nordlicht/waypost/internal/ports"
)

const recordHeaderLen = 12

// FileBuffer is a durable FIFO queue backed by an append-only log plus a
// small meta file holding the count of records already popped from the
// front. The log is compacted whenever the queue empties.
//
// Record format: [8 bytes seq][4 bytes len][len bytes json payload].
type FileBuffer struct {
	mu       sync.Mutex
	path     string
	metaPath string
	file     *os.File
	writer   *bufio.Writer

	nextSeq   uint64
	total     int // records in the log
	consumed  int // records popped from the front
	sizeBytes int64

	// maxLen bounds the queue; 0 disables the cap. When full, the oldest
	// entry is evicted so the most recent track survives a long outage.
	maxLen  int
	onEvict func(n int)
}

// NewFileBuffer opens (or creates) the queue under dir. onEvict, if non-nil,
// is called with the number of entries dropped by the cap.
func NewFileBuffer(dir string, maxLen int, onEvict func(n int)) (*FileBuffer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, "queue.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	b := &FileBuffer{
		path:     path,
		metaPath: filepath.Join(dir, "queue.meta"),
		file:     f,
		writer:   bufio.NewWriterSize(f, 64<<10),
		maxLen:   maxLen,
		onEvict:  onEvict,
	}
	if err := b.bootstrap(); err != nil {
		f.Close()
		return nil, err
	}
	return b, nil
}

func (b *FileBuffer) bootstrap() error {
	if err := b.scanExisting(); err != nil {
		return err
	}
	if err := b.loadConsumed(); err != nil {
		return err
	}
	if b.consumed > b.total {
		b.consumed = b.total
	}
	_, err := b.file.Seek(0, io.SeekEnd)
	return err
}

// scanExisting counts the records already on disk and truncates a torn tail
// left by a crash mid-append.
func (b *FileBuffer) scanExisting() error {
	stat, err := os.Stat(b.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err != nil || stat.Size() == 0 {
		return nil
	}

	rf, err := os.Open(b.path)
	if err != nil {
		return err
	}
	defer rf.Close()

	reader := bufio.NewReader(rf)
	var offset int64

	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(reader, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			if errors.Is(err, io.ErrUnexpectedEOF) {
				if err := b.file.Truncate(offset); err != nil {
					return err
				}
				break
			}
			return fmt.Errorf("queue scan header: %w", err)
		}
		seq := binary.BigEndian.Uint64(hdr[0:8])
		length := binary.BigEndian.Uint32(hdr[8:12])

		if _, err := io.CopyN(io.Discard, reader, int64(length)); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				if err := b.file.Truncate(offset); err != nil {
					return err
				}
				break
			}
			return fmt.Errorf("queue scan body: %w", err)
		}
		offset += recordHeaderLen + int64(length)
		b.total++
		b.nextSeq = seq
	}

	b.sizeBytes = offset
	return nil
}

func (b *FileBuffer) loadConsumed() error {
	data, err := os.ReadFile(b.metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	val := strings.TrimSpace(string(data))
	if val == "" {
		return nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return fmt.Errorf("queue meta parse: %w", err)
	}
	b.consumed = n
	return nil
}

func (b *FileBuffer) Append(p domain.Payload) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.maxLen > 0 && b.total-b.consumed >= b.maxLen {
		b.consumed++
		if b.onEvict != nil {
			b.onEvict(1)
		}
		// Eviction alone only moves the watermark; the dead prefix must
		// be rewritten away or the log grows without bound while the
		// collector stays unreachable.
		if err := b.maybeCompactLocked(); err != nil {
			return fmt.Errorf("queue evict: %w", err)
		}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	seq := b.nextSeq + 1
	var hdr [recordHeaderLen]byte
	binary.BigEndian.PutUint64(hdr[0:8], seq)
	binary.BigEndian.PutUint32(hdr[8:12], uint32(len(data)))

	if _, err := b.writer.Write(hdr[:]); err != nil {
		return fmt.Errorf("queue append: %w", err)
	}
	if _, err := b.writer.Write(data); err != nil {
		return fmt.Errorf("queue append: %w", err)
	}
	// Payload rates are low (at most one per minute per the interval
	// policy), so flush every record rather than batching.
	if err := b.writer.Flush(); err != nil {
		return fmt.Errorf("queue append flush: %w", err)
	}

	b.nextSeq = seq
	b.total++
	b.sizeBytes += int64(recordHeaderLen + len(data))
	return nil
}

func (b *FileBuffer) Drain() ([]domain.Payload, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.total == b.consumed {
		return nil, nil
	}

	f, err := os.Open(b.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var (
		payloads []domain.Payload
		index    int
	)

	for {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return payloads, nil
			}
			return nil, fmt.Errorf("queue read header: %w", err)
		}
		length := binary.BigEndian.Uint32(hdr[8:12])

		if index < b.consumed {
			if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
				return nil, fmt.Errorf("queue skip consumed: %w", err)
			}
			index++
			continue
		}

		data := make([]byte, length)
		if _, err := io.ReadFull(r, data); err != nil {
			return nil, fmt.Errorf("queue read body: %w", err)
		}
		var p domain.Payload
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("corrupt queue entry: %w", err)
		}
		payloads = append(payloads, p)
		index++
	}
}

func (b *FileBuffer) RemoveDelivered(n int) error {
	if n <= 0 {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consumed += n
	if b.consumed > b.total {
		b.consumed = b.total
	}
	if b.consumed == b.total {
		return b.compactLocked()
	}
	return b.persistConsumedLocked()
}

func (b *FileBuffer) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.compactLocked()
}

func (b *FileBuffer) Count() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.total - b.consumed, nil
}

// SizeBytes reports the on-disk size of the log, consumed prefix included.
func (b *FileBuffer) SizeBytes() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sizeBytes
}

func (b *FileBuffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.writer.Flush(); err != nil {
		return err
	}
	return b.file.Close()
}

// maybeCompactLocked persists the watermark and reclaims log space once the
// consumed prefix outweighs the live tail.
func (b *FileBuffer) maybeCompactLocked() error {
	if b.consumed == b.total {
		return b.compactLocked()
	}
	if b.consumed >= b.total-b.consumed {
		return b.rewriteLocked()
	}
	return b.persistConsumedLocked()
}

// rewriteLocked copies the live records into a fresh log and swaps it in,
// dropping the consumed prefix from disk.
func (b *FileBuffer) rewriteLocked() error {
	if err := b.writer.Flush(); err != nil {
		return err
	}
	src, err := os.Open(b.path)
	if err != nil {
		return err
	}
	defer src.Close()

	tmpPath := b.path + ".tmp"
	dst, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	r := bufio.NewReader(src)
	w := bufio.NewWriterSize(dst, 64<<10)
	var kept int64

	for i := 0; i < b.total; i++ {
		var hdr [recordHeaderLen]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			dst.Close()
			return fmt.Errorf("queue rewrite header: %w", err)
		}
		length := binary.BigEndian.Uint32(hdr[8:12])

		if i < b.consumed {
			if _, err := io.CopyN(io.Discard, r, int64(length)); err != nil {
				dst.Close()
				return fmt.Errorf("queue rewrite skip: %w", err)
			}
			continue
		}
		if _, err := w.Write(hdr[:]); err != nil {
			dst.Close()
			return fmt.Errorf("queue rewrite copy: %w", err)
		}
		if _, err := io.CopyN(w, r, int64(length)); err != nil {
			dst.Close()
			return fmt.Errorf("queue rewrite copy: %w", err)
		}
		kept += recordHeaderLen + int64(length)
	}

	if err := w.Flush(); err != nil {
		dst.Close()
		return err
	}
	if err := dst.Close(); err != nil {
		return err
	}

	if err := b.file.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, b.path); err != nil {
		return err
	}
	f, err := os.OpenFile(b.path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	b.file = f
	b.writer = bufio.NewWriterSize(f, 64<<10)
	b.total -= b.consumed
	b.consumed = 0
	b.sizeBytes = kept
	return b.persistConsumedLocked()
}

// compactLocked throws away the fully consumed log and starts fresh.
func (b *FileBuffer) compactLocked() error {
	if err := b.writer.Flush(); err != nil {
		return err
	}
	if err := b.file.Truncate(0); err != nil {
		return err
	}
	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	b.writer.Reset(b.file)
	b.total = 0
	b.consumed = 0
	b.sizeBytes = 0
	return b.persistConsumedLocked()
}

func (b *FileBuffer) persistConsumedLocked() error {
	return os.WriteFile(b.metaPath, []byte(fmt.Sprintf("%d\n", b.consumed)), 0o644)
}

var _ ports.Buffer = (*FileBuffer)(nil)
