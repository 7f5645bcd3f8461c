package volume

import (
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/twojstaryzdomu/asfs/internal/adminspace"
	"github.com/twojstaryzdomu/asfs/internal/asfserr"
	"github.com/twojstaryzdomu/asfs/internal/bitmap"
	"github.com/twojstaryzdomu/asfs/internal/deviceio"
	"github.com/twojstaryzdomu/asfs/internal/extentbtree"
	"github.com/twojstaryzdomu/asfs/internal/objectnode"
	"github.com/twojstaryzdomu/asfs/internal/objects"
	"github.com/twojstaryzdomu/asfs/internal/types"
)

const probeBlockSize = 512

// Mount opens the device at path and brings up a Volume. It follows the
// original's two-phase probe-then-reopen sequence (super.c:
// asfs_fill_super): a 512-byte probe read discovers the volume's real
// block size before anything else is trusted, including the checksum of
// the properly-sized root block. cfg may be nil, meaning default mount
// options.
func Mount(path string, cfg *deviceio.MountConfig) (*Volume, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, asfserr.New(asfserr.IO, "volume.Mount", err)
	}
	probeTotalBlocks := uint32(st.Size() / probeBlockSize)

	probeDev, err := deviceio.Open(path, probeBlockSize, probeTotalBlocks, true)
	if err != nil {
		return nil, err
	}
	probePool := deviceio.NewPool(probeDev)

	probeBuf, err := probePool.Pin(0, 0)
	if err != nil {
		_ = probeDev.Close()
		return nil, err
	}
	var probeRoot types.RootBlock
	probeRoot.Decode(probeBuf.Bytes())
	if err := probeBuf.Release(); err != nil {
		_ = probeDev.Close()
		return nil, err
	}
	if err := probeDev.Close(); err != nil {
		return nil, err
	}
	if probeRoot.Header.ID != types.IDRoot {
		return nil, asfserr.New(asfserr.IO, "volume.Mount", fmt.Errorf("not an ASFS volume: root block id %08x", probeRoot.Header.ID))
	}
	if probeRoot.Version != types.StructureVersion {
		return nil, asfserr.New(asfserr.IO, "volume.Mount", fmt.Errorf("unsupported structure version %d", probeRoot.Version))
	}

	wantReadOnly := deviceOptsReadOnly(cfg)
	dev, err := deviceio.Open(path, probeRoot.BlockSize, probeRoot.TotalBlocks, wantReadOnly)
	if err != nil {
		return nil, err
	}
	pool := deviceio.NewPool(dev)

	buf0, err := pool.Pin(0, types.IDRoot)
	if err != nil {
		_ = dev.Close()
		return nil, err
	}
	var root types.RootBlock
	root.Decode(buf0.Bytes())
	if err := buf0.Release(); err != nil {
		_ = dev.Close()
		return nil, err
	}

	forceReadOnly := false
	mirrorBlock := types.Block(root.TotalBlocks - 1)
	mirrorBuf, mirrErr := pool.Pin(mirrorBlock, types.IDRoot)
	if mirrErr != nil {
		forceReadOnly = true
	} else {
		var mirror types.RootBlock
		mirror.Decode(mirrorBuf.Bytes())
		if err := mirrorBuf.Release(); err != nil {
			_ = dev.Close()
			return nil, err
		}
		if mirror.SequenceNumber > root.SequenceNumber {
			root = mirror
		}
	}

	trfaBlock := root.RootObjectContainer + 2
	if trfaBuf, err := pool.Pin(trfaBlock, types.IDTransactionFail); err == nil {
		forceReadOnly = true
		_ = trfaBuf.Release()
	}

	flg := newFlags(root.Bits, forceReadOnly, cfg != nil && cfg.LowercaseVol)

	v := &Volume{
		pool:      pool,
		dev:       dev,
		root:      root,
		flg:       flg,
		cfg:       cfg,
		SessionID: uuid.New(),
	}
	if err := v.loadRootInfo(); err != nil {
		_ = dev.Close()
		return nil, err
	}

	v.space = bitmap.NewAllocator(pool, v, root.BitmapBase, root.BlockSize, root.TotalBlocks)
	v.admin = adminspace.NewAllocator(pool, v.space, root.AdminSpaceContainer, root.BlockSize)
	v.nodes = objectnode.NewTree(pool, v.admin, root.ObjectNodeRoot, root.BlockSize)
	v.extents = extentbtree.NewTree(pool, v.admin, v.space, root.ExtentBNodeRoot, root.BlockSize)
	v.objs = objects.NewManager(pool, v.admin, v.space, v.nodes, v.extents, v, v, flg.CaseSensitive(), root.BlockSize)

	return v, nil
}
