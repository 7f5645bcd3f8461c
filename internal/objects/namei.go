// Package objects implements Component F: object records packed into
// object containers, their hash-chained directory index, and the
// create/delete/rename/truncate/append operations that mutate them.
// Grounded on objects.c (asfs_find_obj_by_name/asfs_createobject/
// asfs_deleteobject/asfs_renameobject/asfs_truncateblocksinfile/
// asfs_addblockstofile), dir.c (asfs_readdir/asfs_lookup directory
// walks) and namei.c (asfs_hash/asfs_namecmp/asfs_check_name).
package objects

import (
	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

// upperChar folds one ISO-Latin-1 byte to upper case: a-z and the
// accented lower-case range 0xE0-0xFE (except the multiplication sign at
// 0xF7) shift down by 32. Mirrors asfs_upperchar.
func upperChar(c byte) byte {
	if (c >= 224 && c <= 254 && c != 247) || (c >= 'a' && c <= 'z') {
		c -= 32
	}
	return c
}

// CheckName validates a name against the forbidden-character and
// length rules. Mirrors asfs_check_name.
func CheckName(name string) error {
	if len(name) > types.MaxNameLen {
		return asfserr.New(asfserr.Invalid, "objects.CheckName", errNameTooLong(len(name)))
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c < ' ' || c == ':' || (c > 0x7e && c < 0xa0) {
			return asfserr.New(asfserr.Invalid, "objects.CheckName", errBadChar(c))
		}
	}
	return nil
}

type errNameTooLong int

func (e errNameTooLong) Error() string { return "name too long" }

type errBadChar byte

func (e errBadChar) Error() string { return "name contains a forbidden character" }

// nameUpTo returns the prefix of name before its first '/', matching the
// original's treatment of '/' as an embedded terminator during hashing
// and comparison.
func nameUpTo(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == '/' {
			return name[:i]
		}
	}
	return name
}

// Hash computes the bucket hash of name: a polynomial over its
// (optionally case-folded) bytes seeded with the name's own length.
// Mirrors asfs_hash.
func Hash(name string, caseSensitive bool) uint16 {
	n := nameUpTo(name)
	hashval := uint16(len(n))
	for i := 0; i < len(n); i++ {
		c := n[i]
		if !caseSensitive {
			c = upperChar(c)
		}
		hashval = hashval*13 + uint16(c)
	}
	return hashval
}

// hashBucket maps a 16-bit name hash onto one of a hash table's
// buckets. Mirrors the HASHCHAIN macro.
func hashBucket(hash16 uint16, buckets uint32) uint16 {
	return uint16(uint32(hash16) % buckets)
}

// NameEqual reports whether a and b name the same object, comparing
// byte-wise up to NUL or '/' with optional case folding. Mirrors
// asfs_namecmp.
func NameEqual(a, b string, caseSensitive bool) bool {
	return foldedEqual(nameUpTo(a), nameUpTo(b), caseSensitive)
}

func foldedEqual(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		if upperChar(a[i]) != upperChar(b[i]) {
			return false
		}
	}
	return true
}
