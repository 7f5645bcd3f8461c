package volume

import "github.com/twojstaryzdomu/asfs/internal/types"

// flags wraps the root block's single on-disk bits byte plus the
// runtime-only mount flags that don't fit in it (read-only, lowercase
// volume name), mirroring the split between fsRootBlock.bits and
// asfs_fs.h's wider in-memory s_flags. Grounded on internal/apfs/
// container's flag-manager shape: a private struct implementing a small
// public query interface, built with a constructor.
type flags struct {
	caseSensitive bool
	readOnly      bool
	lowercaseVol  bool
}

// newFlags decodes a root block's on-disk bits byte plus the mount-time
// overrides that have no on-disk representation.
func newFlags(bits uint8, forceReadOnly, lowercaseVol bool) flags {
	return flags{
		caseSensitive: bits&types.RootBitsCaseSensitive != 0,
		readOnly:      forceReadOnly,
		lowercaseVol:  lowercaseVol,
	}
}

func (f flags) CaseSensitive() bool { return f.caseSensitive }
func (f flags) ReadOnly() bool      { return f.readOnly }
func (f flags) LowercaseVol() bool  { return f.lowercaseVol }
