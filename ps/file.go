package ps

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/util"
	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/nickyhof/MandukyaDB/core"
)

const (
	fileMagic     = "MDKYADB\x00"
	fileVersion   = uint16(1)
	headerSize    = len(fileMagic) + 2 + 2 + 16
	checksumSize  = 32
	flagCompress  = uint16(1)
)

// maxRecordSize bounds the body of a single record on both the write and
// the replay side.
var maxRecordSize = 1 << 30

var errRecordTooLarge = errors.New("record exceeds maximum size")

// fileLog is the single database file: a fixed header followed by framed
// records, each `uvarint(len) | body | blake3(body)`. Writes go to the end of
// the file and are synced before returning; a failed write is cut off again
// so the file always ends on a complete record.
type fileLog struct {
	fs       billy.Filesystem
	path     string
	file     billy.File
	id       uuid.UUID
	flags    uint16
	size     int64
	records  int // records currently in the file
	appended int // records written since open or the last compaction
	logger   *slog.Logger
}

// openLog opens or creates the database file and returns the decoded
// records found in it. A torn tail left by an interrupted append is
// truncated; damage anywhere else fails with ErrCorrupt and leaves the file
// untouched.
func openLog(fs billy.Filesystem, name string, compress bool, logger *slog.Logger) (*fileLog, []record, error) {
	l := &fileLog{fs: fs, path: name, logger: logger}
	if compress {
		l.flags |= flagCompress
	}

	data, err := util.ReadFile(fs, name)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, nil, core.NewStorageError("read", name, err)
	}

	if len(data) == 0 {
		if err := l.create(); err != nil {
			return nil, nil, err
		}
		return l, nil, nil
	}

	if err := l.readHeader(data); err != nil {
		return nil, nil, err
	}

	records, good, err := scanRecords(data)
	if err != nil {
		return nil, nil, core.NewStorageError("open", name, err)
	}
	if err := l.reopen(int64(good)); err != nil {
		return nil, nil, err
	}
	if good < len(data) {
		logger.Warn("Truncated damaged tail of database file",
			"path", name, "offset", good, "discarded_bytes", len(data)-good)
	}

	decoded := make([]record, 0, len(records))
	for _, body := range records {
		rec, err := decodeRecord(body)
		if err != nil {
			l.file.Close()
			return nil, nil, core.NewStorageError("decode", name, fmt.Errorf("%w: %w", core.ErrCorrupt, err))
		}
		decoded = append(decoded, rec)
	}
	l.records = len(decoded)
	return l, decoded, nil
}

func (l *fileLog) header() []byte {
	buf := make([]byte, 0, headerSize)
	buf = append(buf, fileMagic...)
	buf = binary.LittleEndian.AppendUint16(buf, fileVersion)
	buf = binary.LittleEndian.AppendUint16(buf, l.flags)
	return append(buf, l.id[:]...)
}

func (l *fileLog) readHeader(data []byte) error {
	if len(data) < headerSize || !bytes.Equal(data[:len(fileMagic)], []byte(fileMagic)) {
		return core.NewStorageError("open", l.path, fmt.Errorf("%w: not a database file", core.ErrCorrupt))
	}
	version := binary.LittleEndian.Uint16(data[len(fileMagic):])
	if version != fileVersion {
		return core.NewStorageError("open", l.path, fmt.Errorf("%w: unsupported format version %d", core.ErrCorrupt, version))
	}
	l.flags = binary.LittleEndian.Uint16(data[len(fileMagic)+2:])
	copy(l.id[:], data[len(fileMagic)+4:headerSize])
	return nil
}

// scanRecords returns the bodies of all intact records and the offset just
// past the last one. Only the final frame may be damaged: it is treated as a
// torn append when it runs past the end of data or is the last thing in it.
// A bad frame followed by more bytes, or with an impossible length, is
// reported as ErrCorrupt.
func scanRecords(data []byte) ([][]byte, int, error) {
	var bodies [][]byte
	offset := headerSize
	for offset < len(data) {
		length, n := binary.Uvarint(data[offset:])
		if n == 0 {
			break
		}
		if n < 0 || length > uint64(maxRecordSize) {
			return nil, 0, fmt.Errorf("%w: record at offset %d has invalid length", core.ErrCorrupt, offset)
		}
		if length == 0 {
			if allZero(data[offset:]) {
				break
			}
			return nil, 0, fmt.Errorf("%w: empty record at offset %d", core.ErrCorrupt, offset)
		}
		start := offset + n
		end := start + int(length)
		if end+checksumSize > len(data) {
			break
		}
		body := data[start:end]
		sum := blake3.Sum256(body)
		if !bytes.Equal(sum[:], data[end:end+checksumSize]) {
			if end+checksumSize == len(data) {
				break
			}
			return nil, 0, fmt.Errorf("%w: checksum mismatch in record at offset %d", core.ErrCorrupt, offset)
		}
		bodies = append(bodies, body)
		offset = end + checksumSize
	}
	return bodies, offset, nil
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func checkRecordSize(body []byte) error {
	if len(body) > maxRecordSize {
		return fmt.Errorf("%w: %d bytes, limit %d", errRecordTooLarge, len(body), maxRecordSize)
	}
	return nil
}

func frame(body []byte) []byte {
	buf := make([]byte, 0, binary.MaxVarintLen64+len(body)+checksumSize)
	buf = binary.AppendUvarint(buf, uint64(len(body)))
	buf = append(buf, body...)
	sum := blake3.Sum256(body)
	return append(buf, sum[:]...)
}

func (l *fileLog) create() error {
	if dir := path.Dir(l.path); dir != "." && dir != "/" {
		if err := l.fs.MkdirAll(dir, 0755); err != nil {
			return core.NewStorageError("create", l.path, err)
		}
	}
	l.id = uuid.New()

	f, err := l.fs.OpenFile(l.path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return core.NewStorageError("create", l.path, err)
	}
	header := l.header()
	if _, err := f.Write(header); err != nil {
		f.Close()
		return core.NewStorageError("create", l.path, err)
	}
	if err := syncFile(f); err != nil {
		f.Close()
		return core.NewStorageError("sync", l.path, err)
	}
	l.file = f
	l.size = int64(len(header))
	return nil
}

// reopen opens the file for writing and positions it at size, discarding
// anything beyond.
func (l *fileLog) reopen(size int64) error {
	f, err := l.fs.OpenFile(l.path, os.O_RDWR, 0644)
	if err != nil {
		return core.NewStorageError("open", l.path, err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return core.NewStorageError("truncate", l.path, err)
	}
	if _, err := f.Seek(size, io.SeekStart); err != nil {
		f.Close()
		return core.NewStorageError("seek", l.path, err)
	}
	l.file = f
	l.size = size
	return nil
}

// appendRecord durably writes one record. On failure the file is cut back to
// its previous length and the error is returned.
func (l *fileLog) appendRecord(body []byte) error {
	if l.file == nil {
		return core.NewStorageError("append", l.path, core.ErrClosed)
	}
	if err := checkRecordSize(body); err != nil {
		return core.NewStorageError("append", l.path, err)
	}

	data := frame(body)
	_, err := l.file.Write(data)
	if err == nil {
		err = syncFile(l.file)
	}
	if err != nil {
		l.rollback()
		return core.NewStorageError("append", l.path, err)
	}

	l.size += int64(len(data))
	l.records++
	l.appended++
	return nil
}

func (l *fileLog) rollback() {
	if err := l.file.Truncate(l.size); err != nil {
		l.logger.Error("Failed to truncate database file after write error", "path", l.path, "error", err)
	}
	if _, err := l.file.Seek(l.size, io.SeekStart); err != nil {
		l.logger.Error("Failed to reposition database file after write error", "path", l.path, "error", err)
	}
}

// compact replaces the file with the header and a single snapshot record.
// The snapshot is written to a temporary file first and renamed into place,
// so a failure at any point leaves the previous file intact.
func (l *fileLog) compact(snapshot []byte) error {
	if l.file == nil {
		return core.NewStorageError("compact", l.path, core.ErrClosed)
	}
	if err := checkRecordSize(snapshot); err != nil {
		return core.NewStorageError("compact", l.path, err)
	}

	tmp := l.path + ".tmp"
	data := append(l.header(), frame(snapshot)...)
	if err := l.writeTemp(tmp, data); err != nil {
		l.fs.Remove(tmp)
		return core.NewStorageError("compact", tmp, err)
	}

	if err := l.file.Close(); err != nil {
		l.logger.Warn("Failed to close database file before compaction", "path", l.path, "error", err)
	}
	l.file = nil

	if err := l.fs.Rename(tmp, l.path); err != nil {
		l.fs.Remove(tmp)
		if reopenErr := l.reopen(l.size); reopenErr != nil {
			return reopenErr
		}
		return core.NewStorageError("rename", l.path, err)
	}

	if err := l.reopen(int64(len(data))); err != nil {
		return err
	}
	l.records = 1
	l.appended = 0
	return nil
}

func (l *fileLog) writeTemp(name string, data []byte) error {
	f, err := l.fs.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := syncFile(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (l *fileLog) close() error {
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	if err != nil {
		return core.NewStorageError("close", l.path, err)
	}
	return nil
}

// syncFile flushes f to stable storage when the filesystem supports it;
// in-memory filesystems have nothing to flush.
func syncFile(f billy.File) error {
	if s, ok := f.(billy.Syncer); ok {
		return s.Sync()
	}
	return nil
}
