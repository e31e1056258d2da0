package catalog

import (
	"bytes"

	"github.com/2x3systems/molcanon/libcanon"
	"github.com/2x3systems/molcanon/molcanon"
	"github.com/cespare/xxhash/v2"
)

type dupeEntry struct {
	key []byte
	id  ID
}

type dropDupes struct {
	hashMap   map[uint64]dupeEntry
	engine    *libcanon.Engine
	res       libcanon.Result
	keyBuf    []byte
	bufPool   []byte
	bufPoolSz int
	poolSz    int
	count     uint64
}

const DefaultPoolSz = 32 * 1024

// NewDropDupes returns an in-memory CanonicSet, useful when the structures don't need to outlive the process.
//
// Only opts.AtomFlags, opts.BondFlags and opts.MaxSearchNodes apply.  A dropDupes is not safe for concurrent use.
func NewDropDupes(opts Opts) (CanonicSet, error) {
	cat := &dropDupes{
		hashMap: make(map[uint64]dupeEntry),
		engine:  libcanon.NewEngine(),
		poolSz:  DefaultPoolSz,
	}
	if err := cat.engine.SetAtomPropertyFlags(opts.AtomFlags); err != nil {
		return nil, err
	}
	if err := cat.engine.SetBondPropertyFlags(opts.BondFlags); err != nil {
		return nil, err
	}
	cat.engine.SetMaxSearchNodes(opts.MaxSearchNodes)
	return cat, nil
}

func (cat *dropDupes) Count() uint64 {
	return cat.count
}

func (cat *dropDupes) Close() error {
	cat.bufPool = nil
	cat.bufPoolSz = 0
	cat.hashMap = nil
	return nil
}

func (cat *dropDupes) TryAdd(g molcanon.MolecularGraph) (ID, bool, error) {
	if cat.hashMap == nil {
		return 0, false, ErrClosed
	}
	if err := cat.engine.Canonize(g, &cat.res); err != nil {
		return 0, false, err
	}
	key := cat.res.Table.AppendBytes(cat.keyBuf[:0])
	cat.keyBuf = key

	hash := xxhash.Sum64(key)
	existing, found := cat.hashMap[hash]
	for found {
		if bytes.Equal(existing.key, key) {
			return existing.id, false, nil
		}
		hash++
		existing, found = cat.hashMap[hash]
	}

	// New entry: place a copy of the key in our backing pool, starting a new pool when out of space
	pos := cat.bufPoolSz
	itemLen := len(key)
	if pos+itemLen > cap(cat.bufPool) {
		allocSz := max(cat.poolSz, itemLen)
		cat.bufPool = make([]byte, allocSz)
		cat.bufPoolSz = 0
		pos = 0
	}

	cat.count++
	cat.hashMap[hash] = dupeEntry{
		key: append(cat.bufPool[pos:pos], key...),
		id:  ID(cat.count),
	}
	cat.bufPoolSz += itemLen
	return ID(cat.count), true, nil
}
