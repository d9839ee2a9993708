package ringfs

import (
	"fmt"

	"github.com/ssargent/howfar/pkg/codec"
)

// Geometry of the HowFar flash. Sectors are erase units, pages hold exactly
// one slot each.
const (
	SectorSize = 4096
	PageSize   = 256

	PagesPerSector = SectorSize / PageSize
)

// FillByte is the value of erased flash
const FillByte = 0xFF

// SectorStatus is the first word of a sector header
type SectorStatus uint32

const (
	SectorErased     SectorStatus = 0xFFFFFFFF
	SectorFree       SectorStatus = 0xFFFFFF00
	SectorInUse      SectorStatus = 0xFFFF0000
	SectorErasing    SectorStatus = 0xFF000000
	SectorFormatting SectorStatus = 0x00000000
)

func (s SectorStatus) String() string {
	switch s {
	case SectorErased:
		return "erased"
	case SectorFree:
		return "free"
	case SectorInUse:
		return "in-use"
	case SectorErasing:
		return "erasing"
	case SectorFormatting:
		return "formatting"
	default:
		return fmt.Sprintf("unknown(0x%08X)", uint32(s))
	}
}

// SlotStatus is the first word of every non-first page in a sector
type SlotStatus uint32

const (
	SlotErased   SlotStatus = 0xFFFFFFFF
	SlotReserved SlotStatus = 0xFFFFFF00
	SlotValid    SlotStatus = 0xFFFF0000
	SlotGarbage  SlotStatus = 0xFF000000
)

func (s SlotStatus) String() string {
	switch s {
	case SlotErased:
		return "erased"
	case SlotReserved:
		return "reserved"
	case SlotValid:
		return "valid"
	case SlotGarbage:
		return "garbage"
	default:
		return fmt.Sprintf("unknown(0x%08X)", uint32(s))
	}
}

// On-flash metadata headers
var (
	SectorHeaderLayout = codec.MustLayout("sector_header",
		codec.Uint32("status"),
		codec.Uint32("version"),
	)

	SlotHeaderLayout = codec.MustLayout("slot_header",
		codec.Uint32("status"),
	)
)
