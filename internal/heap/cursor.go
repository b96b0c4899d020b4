package heap

import "github.com/tuannm99/novalite/internal/record"

const cursorBatch = 64

// Cursor pulls rows in row id order, fetching a small batch at a time so a
// scan never materializes the table. It can be restarted with Reset.
type Cursor struct {
	t       *Table
	buf     []item
	pos     int
	after   RowID
	started bool
	done    bool
}

// Next returns the next row, or ok=false at the end.
func (c *Cursor) Next() (RowID, record.Row, bool) {
	if c.pos >= len(c.buf) {
		if c.done {
			return 0, nil, false
		}
		c.fill()
		if len(c.buf) == 0 {
			return 0, nil, false
		}
	}
	it := c.buf[c.pos]
	c.pos++
	return it.id, it.row, true
}

func (c *Cursor) fill() {
	c.buf = c.buf[:0]
	c.pos = 0
	visit := func(it item) bool {
		if c.started && it.id <= c.after {
			return true
		}
		c.buf = append(c.buf, it)
		return len(c.buf) < cursorBatch
	}
	if c.started {
		c.t.rows.AscendGreaterOrEqual(item{id: c.after}, visit)
	} else {
		c.t.rows.Ascend(visit)
	}
	if len(c.buf) < cursorBatch {
		c.done = true
	}
	if n := len(c.buf); n > 0 {
		c.after = c.buf[n-1].id
		c.started = true
	}
}

// Reset rewinds the cursor to the start of the table.
func (c *Cursor) Reset() {
	c.buf = c.buf[:0]
	c.pos = 0
	c.after = 0
	c.started = false
	c.done = false
}
