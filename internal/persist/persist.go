// Package persist encodes a manager and its axes as a self-checking TBL0
// image.
//
// Layout (little-endian):
//
//	magic      "TBL0"
//	n_axes     u8                          columns first, then rows
//	axis       kind u8 (0 flat, 1 multi), count u64, payload
//	  flat     dtype u8, count cells
//	  multi    n_levels u8; per level: count u64, flat payload;
//	           then n_levels x count i32 codes
//	n_blocks   u32
//	block      dtype u8, n_items u32, n_items u32 column positions,
//	           rows u64, n_items x rows cells, item-major
//	crc32      u32 (IEEE) over everything above
//
// Object cells start with a one byte tag; strings are u32-length-prefixed
// UTF-8. Axis names are not stored.
package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"

	"github.com/paveg/blockframe/internal/column"
	"github.com/paveg/blockframe/internal/dtype"
	"github.com/paveg/blockframe/internal/errors"
	"github.com/paveg/blockframe/internal/index"
	"github.com/paveg/blockframe/internal/label"
	"github.com/paveg/blockframe/internal/manager"
)

// Magic opens every image
const Magic = "TBL0"

const (
	axisFlat  uint8 = 0
	axisMulti uint8 = 1
)

// Object cell tags
const (
	tagNull uint8 = iota
	tagString
	tagBool
	tagInt64
	tagFloat64
	tagTime
	tagTuple
)

// Marshal encodes m as a TBL0 image
func Marshal(m *manager.Manager) ([]byte, error) {
	e := &encoder{buf: make([]byte, 0, 64+8*m.Len()*m.Width())}
	e.buf = append(e.buf, Magic...)

	e.u8(2)
	if err := e.axis(m.Columns()); err != nil {
		return nil, err
	}
	if err := e.axis(m.Rows()); err != nil {
		return nil, err
	}

	blocks := m.Blocks()
	e.u32(uint32(len(blocks)))
	for _, b := range blocks {
		locs, err := b.RefLocs()
		if err != nil {
			return nil, err
		}
		e.u8(uint8(b.Dtype()))
		e.u32(uint32(len(locs)))
		for _, loc := range locs {
			e.u32(uint32(loc))
		}
		e.u64(uint64(b.Rows()))
		if err := e.cells(b.Values()); err != nil {
			return nil, err
		}
	}

	return binary.LittleEndian.AppendUint32(e.buf, crc32.ChecksumIEEE(e.buf)), nil
}

// Write encodes m to w
func Write(w io.Writer, m *manager.Manager) error {
	data, err := Marshal(m)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing image: %w", err)
	}
	return nil
}

// Read decodes one image from r, consuming it to EOF
func Read(r io.Reader) (*manager.Manager, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image: %w", err)
	}
	return Unmarshal(data)
}

// Unmarshal decodes a TBL0 image. Any framing, checksum or tag problem is
// reported as a corrupt image.
func Unmarshal(data []byte) (*manager.Manager, error) {
	if len(data) < len(Magic)+4 || !bytes.Equal(data[:len(Magic)], []byte(Magic)) {
		return nil, corrupt("unknown magic", nil)
	}
	body := data[:len(data)-4]
	if want, got := binary.LittleEndian.Uint32(data[len(data)-4:]), crc32.ChecksumIEEE(body); want != got {
		return nil, corrupt(fmt.Sprintf("checksum mismatch: stored %08x, computed %08x", want, got), nil)
	}

	d := &decoder{data: body, off: len(Magic)}
	nAxes, err := d.u8()
	if err != nil {
		return nil, err
	}
	if nAxes != 2 {
		return nil, corrupt(fmt.Sprintf("expected 2 axes, found %d", nAxes), nil)
	}
	colAxis, err := d.axis()
	if err != nil {
		return nil, err
	}
	columns, ok := colAxis.(*index.Index)
	if !ok {
		return nil, corrupt("column axis must be flat", nil)
	}
	rows, err := d.axis()
	if err != nil {
		return nil, err
	}

	nBlocks, err := d.u32()
	if err != nil {
		return nil, err
	}
	blocks := make([]*manager.Block, 0, min(int(nBlocks), columns.Len()))
	for range nBlocks {
		b, err := d.block(columns, rows.Len())
		if err != nil {
			return nil, err
		}
		blocks = append(blocks, b)
	}
	if d.off != len(d.data) {
		return nil, corrupt(fmt.Sprintf("%d trailing bytes", len(d.data)-d.off), nil)
	}

	m, err := manager.New(columns, rows, blocks)
	if err != nil {
		return nil, corrupt("inconsistent block layout", err)
	}
	return m, nil
}

func corrupt(message string, cause error) error {
	return errors.NewCorruptImageError("Unmarshal", message, cause)
}

type encoder struct {
	buf []byte
}

func (e *encoder) u8(v uint8)   { e.buf = append(e.buf, v) }
func (e *encoder) u32(v uint32) { e.buf = binary.LittleEndian.AppendUint32(e.buf, v) }
func (e *encoder) u64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }

func (e *encoder) axis(a index.Axis) error {
	if mi, ok := a.(*index.MultiIndex); ok {
		e.u8(axisMulti)
		e.u64(uint64(mi.Len()))
		e.u8(uint8(mi.NLevels()))
		for _, lvl := range mi.Levels() {
			e.u64(uint64(lvl.Len()))
			if err := e.flat(lvl); err != nil {
				return err
			}
		}
		for l := range mi.NLevels() {
			for _, c := range mi.Codes(l) {
				e.u32(uint32(c))
			}
		}
		return nil
	}
	e.u8(axisFlat)
	e.u64(uint64(a.Len()))
	return e.flat(a.Flat())
}

func (e *encoder) flat(idx *index.Index) error {
	dt := idx.Dtype()
	labels := idx.Labels()
	c := column.Make(dt, len(labels))
	for i, l := range labels {
		if dt == dtype.F64 {
			if n, ok := l.(int64); ok {
				l = float64(n)
			}
		}
		if err := c.Set(i, l); err != nil {
			return err
		}
	}
	e.u8(uint8(dt))
	return e.cells(c)
}

func (e *encoder) cells(c column.Column) error {
	switch c.Dtype() {
	case dtype.F64:
		for _, v := range c.Float64s() {
			e.u64(math.Float64bits(v))
		}
	case dtype.I64:
		for _, v := range c.Int64s() {
			e.u64(uint64(v))
		}
	case dtype.Bool:
		for _, v := range c.Bools() {
			e.u8(boolByte(v))
		}
	case dtype.Timestamp:
		for _, v := range c.Times() {
			e.u64(uint64(v))
		}
	default:
		for i, v := range c.Objects() {
			if c.IsMissing(i) {
				v = nil
			}
			if err := e.object(v); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *encoder) object(v any) error {
	switch x := label.Normalize(v).(type) {
	case nil:
		e.u8(tagNull)
	case string:
		e.u8(tagString)
		e.u32(uint32(len(x)))
		e.buf = append(e.buf, x...)
	case bool:
		e.u8(tagBool)
		e.u8(boolByte(x))
	case int64:
		e.u8(tagInt64)
		e.u64(uint64(x))
	case float64:
		if math.IsNaN(x) {
			e.u8(tagNull)
			return nil
		}
		e.u8(tagFloat64)
		e.u64(math.Float64bits(x))
	case dtype.Time:
		if x.IsNaT() {
			e.u8(tagNull)
			return nil
		}
		e.u8(tagTime)
		e.u64(uint64(x))
	case label.Tuple:
		e.u8(tagTuple)
		e.u32(uint32(len(x)))
		for _, el := range x {
			if err := e.object(el); err != nil {
				return err
			}
		}
	default:
		return errors.NewDtypeMismatchError("Marshal", nil, fmt.Sprintf("cannot persist object cell of type %T", v))
	}
	return nil
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

type decoder struct {
	data []byte
	off  int
}

func (d *decoder) take(n int) ([]byte, error) {
	if n < 0 || len(d.data)-d.off < n {
		return nil, corrupt(fmt.Sprintf("truncated at offset %d", d.off), nil)
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) u8() (uint8, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) u32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) u64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// count reads a u64 element count of fixed-width cells, rejecting counts the
// remaining input cannot hold
func (d *decoder) count(width int) (int, error) {
	n, err := d.u64()
	if err != nil {
		return 0, err
	}
	if n > uint64(len(d.data)-d.off)/uint64(max(width, 1)) {
		return 0, corrupt(fmt.Sprintf("count %d exceeds image size", n), nil)
	}
	return int(n), nil
}

// cellWidth is the smallest encoded size of one cell; object cells take at least their tag byte
func cellWidth(dt dtype.Dtype) uint64 {
	switch dt {
	case dtype.Bool, dtype.Object:
		return 1
	default:
		return 8
	}
}

func (d *decoder) dtype() (dtype.Dtype, error) {
	tag, err := d.u8()
	if err != nil {
		return 0, err
	}
	dt := dtype.Dtype(tag)
	if !dt.Valid() {
		return 0, corrupt(fmt.Sprintf("unknown dtype tag %d", tag), nil)
	}
	return dt, nil
}

func (d *decoder) axis() (index.Axis, error) {
	kind, err := d.u8()
	if err != nil {
		return nil, err
	}
	n, err := d.count(1)
	if err != nil {
		return nil, err
	}

	switch kind {
	case axisFlat:
		return d.flat(n)
	case axisMulti:
		nLevels, err := d.u8()
		if err != nil {
			return nil, err
		}
		levels := make([]*index.Index, nLevels)
		for l := range levels {
			size, err := d.count(1)
			if err != nil {
				return nil, err
			}
			if levels[l], err = d.flat(size); err != nil {
				return nil, err
			}
		}
		codes := make([][]int32, nLevels)
		for l := range codes {
			codes[l] = make([]int32, n)
			for i := range codes[l] {
				c, err := d.u32()
				if err != nil {
					return nil, err
				}
				codes[l][i] = int32(c)
			}
		}
		mi, err := index.NewMultiIndex(levels, codes, nil)
		if err != nil {
			return nil, corrupt("invalid hierarchical axis", err)
		}
		return mi, nil
	default:
		return nil, corrupt(fmt.Sprintf("unknown axis kind %d", kind), nil)
	}
}

func (d *decoder) flat(n int) (*index.Index, error) {
	dt, err := d.dtype()
	if err != nil {
		return nil, err
	}
	c, err := d.cells(dt, n)
	if err != nil {
		return nil, err
	}
	return index.New(c.Values()), nil
}

func (d *decoder) cells(dt dtype.Dtype, n int) (column.Column, error) {
	switch dt {
	case dtype.F64:
		out := make([]float64, n)
		for i := range out {
			v, err := d.u64()
			if err != nil {
				return column.Column{}, err
			}
			out[i] = math.Float64frombits(v)
		}
		return column.NewFloat64(out), nil
	case dtype.I64:
		out := make([]int64, n)
		for i := range out {
			v, err := d.u64()
			if err != nil {
				return column.Column{}, err
			}
			out[i] = int64(v)
		}
		return column.NewInt64(out), nil
	case dtype.Bool:
		out := make([]bool, n)
		for i := range out {
			v, err := d.u8()
			if err != nil {
				return column.Column{}, err
			}
			out[i] = v != 0
		}
		return column.NewBool(out), nil
	case dtype.Timestamp:
		out := make([]dtype.Time, n)
		for i := range out {
			v, err := d.u64()
			if err != nil {
				return column.Column{}, err
			}
			out[i] = dtype.Time(v)
		}
		return column.NewTime(out), nil
	default:
		out := make([]any, n)
		for i := range out {
			v, err := d.object()
			if err != nil {
				return column.Column{}, err
			}
			out[i] = v
		}
		return column.NewObject(out), nil
	}
}

func (d *decoder) object() (any, error) {
	tag, err := d.u8()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagNull:
		return nil, nil
	case tagString:
		n, err := d.u32()
		if err != nil {
			return nil, err
		}
		b, err := d.take(int(n))
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case tagBool:
		v, err := d.u8()
		return v != 0, err
	case tagInt64:
		v, err := d.u64()
		return int64(v), err
	case tagFloat64:
		v, err := d.u64()
		return math.Float64frombits(v), err
	case tagTime:
		v, err := d.u64()
		return dtype.Time(v), err
	case tagTuple:
		n, err := d.u32()
		if err != nil {
			return nil, err
		}
		if int(n) > len(d.data)-d.off {
			return nil, corrupt(fmt.Sprintf("tuple of %d elements exceeds image size", n), nil)
		}
		t := make(label.Tuple, n)
		for i := range t {
			if t[i], err = d.object(); err != nil {
				return nil, err
			}
		}
		return t, nil
	default:
		return nil, corrupt(fmt.Sprintf("unknown object tag %d", tag), nil)
	}
}

func (d *decoder) block(columns *index.Index, rows int) (*manager.Block, error) {
	dt, err := d.dtype()
	if err != nil {
		return nil, err
	}
	nItems, err := d.u32()
	if err != nil {
		return nil, err
	}
	if int(nItems) > columns.Len() {
		return nil, corrupt(fmt.Sprintf("block holds %d items, axis has %d", nItems, columns.Len()), nil)
	}
	items := make([]label.Label, nItems)
	for i := range items {
		pos, err := d.u32()
		if err != nil {
			return nil, err
		}
		if int(pos) >= columns.Len() {
			return nil, corrupt(fmt.Sprintf("item position %d out of range", pos), nil)
		}
		items[i] = columns.Label(int(pos))
	}
	n, err := d.u64()
	if err != nil {
		return nil, err
	}
	if n != uint64(rows) {
		return nil, corrupt(fmt.Sprintf("block has %d rows, axis has %d", n, rows), nil)
	}
	if rows > 0 && uint64(nItems) > uint64(len(d.data)-d.off)/uint64(rows)/cellWidth(dt) {
		return nil, corrupt(fmt.Sprintf("block of %d x %d cells exceeds image", nItems, rows), nil)
	}
	values, err := d.cells(dt, int(nItems)*rows)
	if err != nil {
		return nil, err
	}
	b, err := manager.NewBlock(index.New(items), values, rows)
	if err != nil {
		return nil, corrupt("invalid block", err)
	}
	return b, nil
}
