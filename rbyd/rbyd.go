package rbyd

import (
	"github.com/flashdbg/rbydkit/disk"
	"github.com/flashdbg/rbydkit/encoding"
	"github.com/flashdbg/rbydkit/endian"
	"github.com/flashdbg/rbydkit/format"
	"github.com/flashdbg/rbydkit/internal/options"
)

// Rbyd is one decoded block: the raw bytes plus the location of the most
// recent valid commit. A zero Trunk means the block held no valid commit
// and is unreadable; Weight, Eoff and Cksum are meaningless in that case.
type Rbyd struct {
	// Block is the physical block number the bytes were read from.
	Block uint32
	// Redund lists the losing copies of a redundant block set, in the
	// order they were given to FetchSet. Empty for plain fetches.
	Redund []uint32
	// Rev is the block's revision counter (first four bytes of the log).
	Rev uint32
	// Data is the raw block contents, aliasing the disk image.
	Data []byte
	// Trunk is the log offset of the committed root alt/tag chain.
	Trunk uint32
	// Weight is the number of logical ids spanned by the committed tree.
	Weight int
	// Eoff is the committed end offset; bytes past it are uncommitted.
	Eoff uint32
	// Cksum is the stored checksum of the winning commit.
	Cksum uint32
}

type config struct {
	trunk uint32
}

// Option configures Fetch and FetchSet.
type Option = options.Option[*config]

// WithTrunk pins the fetch to the commit whose byte range encloses the
// given trunk offset, instead of the latest commit. This is how the
// inspectors view historical versions still present in a block's log.
func WithTrunk(trunk uint32) Option {
	return options.NoError(func(c *config) {
		c.trunk = trunk
	})
}

// Readable reports whether the block held at least one valid commit.
func (r *Rbyd) Readable() bool {
	return r.Trunk != 0
}

// Fetch replays the log in the given block and returns the decoded Rbyd.
//
// The replay scans from offset 4, checking every tag word's valid bit
// against the popcount parity of the running CRC32C and accumulating the
// checksum over record headers and non-alt, non-checksum payloads. Each
// checksum record whose stored value matches the running checksum
// commits the trunk candidate accumulated since the previous commit.
// The scan stops at the first parity failure, checksum mismatch,
// malformed varint, or end of block, keeping the last good commit.
//
// Fetch fails closed: any corruption, including an out-of-range block
// number, yields an unreadable Rbyd rather than an error.
func Fetch(d *disk.Disk, block uint32, opts ...Option) Rbyd {
	cfg := config{}
	if err := options.Apply(&cfg, opts...); err != nil {
		return Rbyd{Block: block}
	}

	data, err := d.ReadBlock(block)
	if err != nil || len(data) < 4 {
		return Rbyd{Block: block}
	}

	engine := endian.GetLittleEndianEngine()
	r := Rbyd{
		Block: block,
		Rev:   engine.Uint32(data[0:4]),
		Data:  data,
	}

	var (
		crc      uint32
		off      = uint32(4)
		inTrunk  bool
		runTrunk uint32 // start offset of the in-progress alt/tag run
		runWt    int
		trunk    uint32 // last completed run, candidate for the next commit
		weight   int
		latched  bool // explicit-trunk run seen
		lTrunk   uint32
		lWeight  int
	)

	for off < uint32(len(data)) {
		hdr, ok := encoding.DecodeTag(engine, data[off:])
		if !ok {
			break
		}
		if hdr.Valid() != encoding.Parity(crc) {
			break
		}

		hdrEnd := off + uint32(hdr.Len)
		crc = encoding.Crc32c(crc, data[off:hdrEnd])
		t := hdr.Tag.Key()

		switch t.Classify() {
		case format.ClassAlt:
			if !inTrunk {
				inTrunk = true
				runTrunk = off
				runWt = 0
			}
			// only the less-or-equal spine counts toward total weight
			if !t.IsGt() {
				runWt += int(hdr.Weight)
			}
			off = hdrEnd

		case format.ClassCksum:
			inTrunk = false
			if hdr.Size < 4 || hdrEnd+hdr.Size > uint32(len(data)) {
				return r
			}
			if t == format.TagCksum {
				stored := engine.Uint32(data[hdrEnd : hdrEnd+4])
				if stored != crc {
					// torn or corrupt commit, keep the last good one
					return r
				}
				if cfg.trunk != 0 {
					if latched {
						r.Trunk = lTrunk
						r.Weight = lWeight
						r.Eoff = hdrEnd + hdr.Size
						r.Cksum = stored

						return r
					}
					if off > cfg.trunk {
						// past the requested offset with nothing latched
						return r
					}
				} else {
					r.Trunk = trunk
					r.Weight = weight
					r.Eoff = hdrEnd + hdr.Size
					r.Cksum = stored
				}
			}
			// checksum-class payloads are excluded from the chain
			off = hdrEnd + hdr.Size

		default:
			if !inTrunk {
				runTrunk = off
				runWt = 0
			}
			inTrunk = false
			if hdrEnd+hdr.Size > uint32(len(data)) {
				return r
			}
			crc = encoding.Crc32c(crc, data[hdrEnd:hdrEnd+hdr.Size])
			runWt += int(hdr.Weight)
			trunk = runTrunk
			weight = runWt
			if cfg.trunk != 0 && runTrunk <= cfg.trunk && cfg.trunk < hdrEnd+hdr.Size {
				latched = true
				lTrunk = runTrunk
				lWeight = runWt
			}
			off = hdrEnd + hdr.Size
		}
	}

	return r
}
