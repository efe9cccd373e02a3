package ps

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ulikunitz/xz"

	"github.com/nickyhof/MandukyaDB/core"
)

type recordKind byte

const (
	snapshotRecord recordKind = iota + 1
	createRecord
	insertRecord
	deleteRecord
	dropRecord
)

const (
	compressionNone byte = iota
	compressionXZ
)

const (
	tagInteger byte = iota + 1
	tagText
	tagReal
	tagBlob
)

var errShortRecord = errors.New("record truncated")

// record is the decoded form of one log entry.
type record struct {
	kind   recordKind
	schema core.Table  // create
	table  string      // insert, delete, drop
	id     uint64      // insert
	row    core.Row    // insert
	ids    []uint64    // delete
	tables []tableData // snapshot
}

type tableData struct {
	schema core.Table
	nextID uint64
	ids    []uint64
	rows   []core.Row
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func appendValue(buf []byte, v core.Value) []byte {
	switch v.Type() {
	case core.IntegerType:
		buf = append(buf, tagInteger)
		return binary.AppendVarint(buf, v.Int())
	case core.RealType:
		buf = append(buf, tagReal)
		return binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.Float()))
	case core.BlobType:
		buf = append(buf, tagBlob)
		buf = binary.AppendUvarint(buf, uint64(len(v.Bytes())))
		return append(buf, v.Bytes()...)
	default:
		buf = append(buf, tagText)
		return appendString(buf, v.Str())
	}
}

func appendRow(buf []byte, row core.Row) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(row)))
	for _, v := range row {
		buf = appendValue(buf, v)
	}
	return buf
}

func appendSchema(buf []byte, schema core.Table) []byte {
	buf = appendString(buf, schema.Name)
	buf = binary.AppendUvarint(buf, uint64(len(schema.Columns)))
	for _, col := range schema.Columns {
		buf = appendString(buf, col.Name)
		buf = append(buf, byte(col.Type))
	}
	return buf
}

func encodeCreate(schema core.Table) []byte {
	return appendSchema([]byte{byte(createRecord)}, schema)
}

func encodeInsert(table string, id uint64, row core.Row) []byte {
	buf := appendString([]byte{byte(insertRecord)}, table)
	buf = binary.AppendUvarint(buf, id)
	return appendRow(buf, row)
}

func encodeDelete(table string, ids []uint64) []byte {
	buf := appendString([]byte{byte(deleteRecord)}, table)
	buf = binary.AppendUvarint(buf, uint64(len(ids)))
	for _, id := range ids {
		buf = binary.AppendUvarint(buf, id)
	}
	return buf
}

func encodeDrop(table string) []byte {
	return appendString([]byte{byte(dropRecord)}, table)
}

// encodeSnapshot writes every table in creation order, optionally
// xz-compressing the payload.
func encodeSnapshot(tables []tableData, compress bool) ([]byte, error) {
	var payload []byte
	payload = binary.AppendUvarint(payload, uint64(len(tables)))
	for _, t := range tables {
		payload = appendSchema(payload, t.schema)
		payload = binary.AppendUvarint(payload, t.nextID)
		payload = binary.AppendUvarint(payload, uint64(len(t.ids)))
		for i, id := range t.ids {
			payload = binary.AppendUvarint(payload, id)
			payload = appendRow(payload, t.rows[i])
		}
	}

	if !compress {
		return append([]byte{byte(snapshotRecord), compressionNone}, payload...), nil
	}

	var buf bytes.Buffer
	buf.WriteByte(byte(snapshotRecord))
	buf.WriteByte(compressionXZ)
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create xz writer: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// decoder reads fields sequentially and remembers the first failure.
type decoder struct {
	buf []byte
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = err
	}
}

func (d *decoder) u8() byte {
	if d.err != nil {
		return 0
	}
	if len(d.buf) < 1 {
		d.fail(errShortRecord)
		return 0
	}
	b := d.buf[0]
	d.buf = d.buf[1:]
	return b
}

func (d *decoder) uvarint() uint64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Uvarint(d.buf)
	if n <= 0 {
		d.fail(errShortRecord)
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) varint() int64 {
	if d.err != nil {
		return 0
	}
	v, n := binary.Varint(d.buf)
	if n <= 0 {
		d.fail(errShortRecord)
		return 0
	}
	d.buf = d.buf[n:]
	return v
}

func (d *decoder) blob() []byte {
	n := d.uvarint()
	if d.err != nil {
		return nil
	}
	if uint64(len(d.buf)) < n {
		d.fail(errShortRecord)
		return nil
	}
	b := bytes.Clone(d.buf[:n])
	d.buf = d.buf[n:]
	return b
}

func (d *decoder) str() string {
	return string(d.blob())
}

// count reads a length prefix and rejects values that cannot fit in the
// remaining input, so corrupt lengths never drive huge allocations.
func (d *decoder) count() int {
	n := d.uvarint()
	if d.err == nil && n > uint64(len(d.buf)) {
		d.fail(errShortRecord)
		return 0
	}
	return int(n)
}

func (d *decoder) value() core.Value {
	switch tag := d.u8(); tag {
	case tagInteger:
		return core.Integer(d.varint())
	case tagReal:
		if len(d.buf) < 8 {
			d.fail(errShortRecord)
			return core.Value{}
		}
		bits := binary.LittleEndian.Uint64(d.buf)
		d.buf = d.buf[8:]
		return core.Real(math.Float64frombits(bits))
	case tagText:
		return core.Text(d.str())
	case tagBlob:
		return core.Blob(d.blob())
	default:
		d.fail(fmt.Errorf("unknown value tag %d", tag))
		return core.Value{}
	}
}

func (d *decoder) row() core.Row {
	n := d.count()
	row := make(core.Row, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		row = append(row, d.value())
	}
	return row
}

func (d *decoder) schema() core.Table {
	schema := core.Table{Name: d.str()}
	n := d.count()
	for i := 0; i < n && d.err == nil; i++ {
		col := core.Column{Name: d.str(), Type: core.ColumnType(d.u8())}
		if col.Type < core.IntegerType || col.Type > core.BlobType {
			d.fail(fmt.Errorf("unknown column type %d", col.Type))
		}
		schema.Columns = append(schema.Columns, col)
	}
	return schema
}

func decodeRecord(body []byte) (record, error) {
	d := &decoder{buf: body}
	rec := record{kind: recordKind(d.u8())}

	switch rec.kind {
	case createRecord:
		rec.schema = d.schema()
	case insertRecord:
		rec.table = d.str()
		rec.id = d.uvarint()
		rec.row = d.row()
	case deleteRecord:
		rec.table = d.str()
		n := d.count()
		for i := 0; i < n && d.err == nil; i++ {
			rec.ids = append(rec.ids, d.uvarint())
		}
	case dropRecord:
		rec.table = d.str()
	case snapshotRecord:
		tables, err := decodeSnapshot(d)
		if err != nil {
			return rec, err
		}
		rec.tables = tables
	default:
		return rec, fmt.Errorf("unknown record kind %d", rec.kind)
	}

	if d.err == nil && len(d.buf) != 0 {
		d.fail(fmt.Errorf("%d trailing bytes in record", len(d.buf)))
	}
	return rec, d.err
}

func decodeSnapshot(d *decoder) ([]tableData, error) {
	switch compression := d.u8(); compression {
	case compressionNone:
	case compressionXZ:
		r, err := xz.NewReader(bytes.NewReader(d.buf))
		if err != nil {
			return nil, fmt.Errorf("failed to open compressed snapshot: %w", err)
		}
		payload, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
		}
		d.buf = payload
	default:
		return nil, fmt.Errorf("unknown snapshot compression %d", compression)
	}

	n := d.count()
	tables := make([]tableData, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		t := tableData{schema: d.schema(), nextID: d.uvarint()}
		rows := d.count()
		for j := 0; j < rows && d.err == nil; j++ {
			t.ids = append(t.ids, d.uvarint())
			t.rows = append(t.rows, d.row())
		}
		tables = append(tables, t)
	}
	return tables, d.err
}
