package libcanon

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// AppendBytes appends a self-delimiting (uvarint) binary encoding of T to out.
//
// Distinct tables always produce distinct encodings.
func (T ConnectionTable) AppendBytes(out []byte) []byte {
	var scrap [binary.MaxVarintLen64]byte

	for _, Ti := range T {
		n := binary.PutUvarint(scrap[:], Ti)
		out = append(out, scrap[:n]...)
	}
	return out
}

// CanonicalHash returns a 64-bit hash of the given table.
//
// Equal tables (and therefore isomorphic graphs canonized with the same flags) always hash the same.
func CanonicalHash(T ConnectionTable) uint64 {
	var scrap [256]byte
	return xxhash.Sum64(T.AppendBytes(scrap[:0]))
}
