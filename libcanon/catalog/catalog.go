package catalog

import (
	"encoding/binary"
	"sync"

	"github.com/2x3systems/molcanon/libcanon"
	"github.com/2x3systems/molcanon/molcanon"
	"github.com/dgraph-io/badger/v3"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

/***

Catalog database format:

	gCatalogStateKey                        => count (uvarint)
	gCatalogFlagsKey                        => atom flags (uvarint), bond flags (uvarint)
	kEntryPrefix, hash (8 bytes BE), table  => ID (uvarint)

where table is libcanon.ConnectionTable.AppendBytes() of the canonical table.  The hash only spreads keys;
equality is always decided by the full table.  The flags decide which graphs are equivalent, so a catalog
only opens with the flags it was created with.

***/

var (
	gCatalogStateKey = []byte{0x00, 0x00, 0x01}
	gCatalogFlagsKey = []byte{0x00, 0x00, 0x02}
)

const kEntryPrefix = 0x01

var (
	ErrClosed        = errors.New("catalog: closed")
	ErrFlagsMismatch = errors.Wrap(molcanon.ErrBadConfig, "catalog: property flags differ from those the catalog was created with")
)

// ID identifies a unique structure in a Catalog; IDs are issued sequentially starting at 1.
type ID uint64

// Opts configures Open.
type Opts struct {
	DbPathName     string // if empty, the catalog is held in memory
	ReadOnly       bool
	AtomFlags      molcanon.AtomPropertyFlag
	BondFlags      molcanon.BondPropertyFlag
	MaxSearchNodes int
}

// DefaultOpts returns options for an in-memory catalog using the default property flags.
func DefaultOpts() Opts {
	return Opts{
		AtomFlags: molcanon.DefaultAtomPropertyFlags,
		BondFlags: molcanon.DefaultBondPropertyFlags,
	}
}

// Catalog dedupes molecular graphs by their canonical connection table.
//
// A Catalog is safe for concurrent use.
type Catalog struct {
	mu     sync.Mutex
	db     *badger.DB
	opts   Opts
	engine *libcanon.Engine
	res    libcanon.Result
	keyBuf []byte
	count  uint64
}

// Open opens (or creates) a catalog.
func Open(opts Opts) (*Catalog, error) {
	cat := &Catalog{
		opts:   opts,
		engine: libcanon.NewEngine(),
	}
	if err := cat.engine.SetAtomPropertyFlags(opts.AtomFlags); err != nil {
		return nil, err
	}
	if err := cat.engine.SetBondPropertyFlags(opts.BondFlags); err != nil {
		return nil, err
	}
	cat.engine.SetMaxSearchNodes(opts.MaxSearchNodes)

	dbOpts := badger.DefaultOptions(opts.DbPathName)
	if opts.DbPathName == "" {
		dbOpts = dbOpts.WithInMemory(true)
	} else {
		dbOpts.ReadOnly = opts.ReadOnly
	}
	dbOpts.Logger = nil
	dbOpts.MetricsEnabled = false

	var err error
	cat.db, err = badger.Open(dbOpts)
	if err != nil {
		return nil, errors.Wrapf(err, "opening catalog %q", opts.DbPathName)
	}

	if err = cat.loadState(); err != nil {
		cat.db.Close()
		return nil, errors.Wrapf(err, "opening catalog %q", opts.DbPathName)
	}

	klog.V(1).Infof("opened catalog %q with %d entries", opts.DbPathName, cat.count)
	return cat, nil
}

func (cat *Catalog) flagsValue() []byte {
	val := binary.AppendUvarint(nil, uint64(cat.opts.AtomFlags))
	return binary.AppendUvarint(val, uint64(cat.opts.BondFlags))
}

// loadState reads the entry count and checks (or, for a new catalog, records) the property flags.
func (cat *Catalog) loadState() error {
	flagsFound := false
	err := cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(gCatalogStateKey)
		if err == nil {
			err = item.Value(func(val []byte) error {
				count, n := binary.Uvarint(val)
				if n <= 0 {
					return errors.New("catalog: corrupt state")
				}
				cat.count = count
				return nil
			})
		}
		if err != nil && err != badger.ErrKeyNotFound {
			return err
		}

		item, err = txn.Get(gCatalogFlagsKey)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		flagsFound = true
		return item.Value(func(val []byte) error {
			atomFlags, n := binary.Uvarint(val)
			if n <= 0 {
				return errors.New("catalog: corrupt flags")
			}
			bondFlags, m := binary.Uvarint(val[n:])
			if m <= 0 {
				return errors.New("catalog: corrupt flags")
			}
			if molcanon.AtomPropertyFlag(atomFlags) != cat.opts.AtomFlags || molcanon.BondPropertyFlag(bondFlags) != cat.opts.BondFlags {
				return errors.Wrapf(ErrFlagsMismatch, "stored atom=%#x bond=%#x, given atom=%#x bond=%#x",
					atomFlags, bondFlags, uint64(cat.opts.AtomFlags), uint64(cat.opts.BondFlags))
			}
			return nil
		})
	})
	if err != nil || flagsFound || cat.opts.ReadOnly {
		return err
	}
	return cat.db.Update(func(txn *badger.Txn) error {
		return txn.Set(gCatalogFlagsKey, cat.flagsValue())
	})
}

// Close flushes and releases the catalog; subsequent calls return ErrClosed.
func (cat *Catalog) Close() error {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	if cat.db == nil {
		return nil
	}
	err := cat.db.Close()
	cat.db = nil
	klog.V(1).Infof("closed catalog %q (%d entries)", cat.opts.DbPathName, cat.count)
	return err
}

// Count returns the number of unique structures in the catalog.
func (cat *Catalog) Count() uint64 {
	cat.mu.Lock()
	defer cat.mu.Unlock()
	return cat.count
}

// canonicKey canonizes g and forms its catalog key in cat.keyBuf.
// pre: cat.mu is locked
func (cat *Catalog) canonicKey(g molcanon.MolecularGraph) ([]byte, error) {
	if cat.db == nil {
		return nil, ErrClosed
	}
	if err := cat.engine.Canonize(g, &cat.res); err != nil {
		return nil, err
	}

	key := append(cat.keyBuf[:0], kEntryPrefix)
	key = binary.BigEndian.AppendUint64(key, libcanon.CanonicalHash(cat.res.Table))
	key = cat.res.Table.AppendBytes(key)
	cat.keyBuf = key
	return key, nil
}

func readID(item *badger.Item) (ID, error) {
	var id ID
	err := item.Value(func(val []byte) error {
		v, n := binary.Uvarint(val)
		if n <= 0 {
			return errors.New("catalog: corrupt entry")
		}
		id = ID(v)
		return nil
	})
	return id, err
}

// Contains returns the ID of the structure equivalent to g if one has been added.
func (cat *Catalog) Contains(g molcanon.MolecularGraph) (ID, bool, error) {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	key, err := cat.canonicKey(g)
	if err != nil {
		return 0, false, err
	}

	var id ID
	found := false
	err = cat.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		id, err = readID(item)
		return err
	})
	return id, found, err
}

// TryAdd adds g if no equivalent structure is present.
//
// Returns the ID of the (new or existing) structure and true if g was added.
func (cat *Catalog) TryAdd(g molcanon.MolecularGraph) (ID, bool, error) {
	cat.mu.Lock()
	defer cat.mu.Unlock()

	if cat.opts.ReadOnly {
		return 0, false, errors.New("catalog: read only")
	}
	key, err := cat.canonicKey(g)
	if err != nil {
		return 0, false, err
	}

	var id ID
	added := false
	err = cat.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err == nil {
			id, err = readID(item)
			return err
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		var scrap [binary.MaxVarintLen64]byte
		count := cat.count + 1
		n := binary.PutUvarint(scrap[:], count)
		if err = txn.Set(append([]byte(nil), key...), append([]byte(nil), scrap[:n]...)); err != nil {
			return err
		}
		if err = txn.Set(gCatalogStateKey, append([]byte(nil), scrap[:n]...)); err != nil {
			return err
		}
		id = ID(count)
		added = true
		return nil
	})
	if err != nil {
		return 0, false, errors.Wrap(err, "catalog update")
	}

	if added {
		cat.count++
	}
	return id, added, nil
}
