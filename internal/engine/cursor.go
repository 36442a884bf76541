package engine

import (
	"context"
)

// Cursor is a lazy, single-pass, non-restartable walk over the keys live at
// the moment it was created, in their first-insertion order. Values are read
// from disk on demand, not copied up front.
type Cursor struct {
	engine *Engine
	keys   []string
	pos    int
}

// Cursor snapshots the currently live keys and returns a Cursor over them.
func (e *Engine) Cursor() *Cursor {
	keys := make([]string, 0, e.index.Count())
	e.index.ForEach(func(key string) bool {
		keys = append(keys, key)
		return true
	})
	return &Cursor{engine: e, keys: keys}
}

// Next advances the cursor and returns the next (key, value) pair. ok is
// false once the snapshot is exhausted. A key deleted since the snapshot
// was taken is silently skipped.
func (c *Cursor) Next(ctx context.Context) (key string, value []byte, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", nil, false, err
	}

	for c.pos < len(c.keys) {
		k := c.keys[c.pos]
		c.pos++

		le, stillLive := c.engine.index.Current(k)
		if !stillLive {
			continue
		}
		v, err := c.engine.readValue(le)
		if err != nil {
			return "", nil, false, err
		}
		return k, v, true, nil
	}
	return "", nil, false, nil
}

// ForEach drains the cursor, calling fn once per surviving (key, value)
// pair until exhausted or fn returns an error.
func (c *Cursor) ForEach(fn func(key string, value []byte) error) error {
	ctx := context.Background()
	for {
		key, value, ok, err := c.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if err := fn(key, value); err != nil {
			return err
		}
	}
}
