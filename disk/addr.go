package disk

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/flashdbg/rbydkit/errs"
)

// Addr is a parsed block address argument: one or more redundant block
// numbers, optionally pinned to an explicit trunk offset for inspecting
// a historical commit within the block.
type Addr struct {
	Blocks []uint32
	Trunk  uint32
}

// ParseAddr parses the inspector address syntax:
//
//	0x12           a single block
//	0x{12,13}      a redundant block set
//	0x{12,13}.40   a redundant block set pinned to trunk offset 0x40
//
// All numbers are hexadecimal, with or without the 0x prefix inside
// braces. A zero Trunk means "latest commit".
func ParseAddr(s string) (Addr, error) {
	var addr Addr

	rest := s
	if i := strings.LastIndexByte(rest, '.'); i >= 0 {
		trunk, err := parseHex(rest[i+1:])
		if err != nil {
			return Addr{}, fmt.Errorf("%w: %q", errs.ErrInvalidAddr, s)
		}
		addr.Trunk = trunk
		rest = rest[:i]
	}

	rest = strings.TrimPrefix(rest, "0x")
	if strings.HasPrefix(rest, "{") {
		if !strings.HasSuffix(rest, "}") {
			return Addr{}, fmt.Errorf("%w: %q", errs.ErrInvalidAddr, s)
		}
		for _, part := range strings.Split(rest[1:len(rest)-1], ",") {
			block, err := parseHex(strings.TrimSpace(part))
			if err != nil {
				return Addr{}, fmt.Errorf("%w: %q", errs.ErrInvalidAddr, s)
			}
			addr.Blocks = append(addr.Blocks, block)
		}
		if len(addr.Blocks) == 0 {
			return Addr{}, fmt.Errorf("%w: %q", errs.ErrInvalidAddr, s)
		}

		return addr, nil
	}

	block, err := parseHex(rest)
	if err != nil {
		return Addr{}, fmt.Errorf("%w: %q", errs.ErrInvalidAddr, s)
	}
	addr.Blocks = []uint32{block}

	return addr, nil
}

func parseHex(s string) (uint32, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return 0, strconv.ErrSyntax
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, err
	}

	return uint32(v), nil
}

func (a Addr) String() string {
	if len(a.Blocks) == 1 && a.Trunk == 0 {
		return fmt.Sprintf("0x%x", a.Blocks[0])
	}

	parts := make([]string, len(a.Blocks))
	for i, block := range a.Blocks {
		parts[i] = fmt.Sprintf("%x", block)
	}
	s := "0x{" + strings.Join(parts, ",") + "}"
	if a.Trunk != 0 {
		s += fmt.Sprintf(".%x", a.Trunk)
	}

	return s
}
