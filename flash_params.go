package icefun

import "fmt"

// Flash geometry of the iceFUN board.
const (
	PageSize    = 256      // program/read granularity
	SectorShift = 16       // Erase64K sector index = addr >> SectorShift
	SectorSize  = 64 << 10 // 64KB
	FlashSize   = 1 << 20  // 1MB, the readable address space
)

// FlashID is the JEDEC ID returned by ResetAndIdentify:
// manufacturer, memory type and capacity.
type FlashID [3]byte

var (
	flashIDMicronN25Q32   = FlashID{0x20, 0xBA, 0x16}
	flashIDWinbondW25Q128 = FlashID{0xEF, 0x70, 0x18}
	flashIDWinbondW25Q80  = FlashID{0xEF, 0x40, 0x14}
	flashIDMacronixMX25L8 = FlashID{0xC2, 0x20, 0x14}
)

var knownFlash = map[FlashID]string{
	flashIDMicronN25Q32:   "Micron N25Q 32Mb",
	flashIDWinbondW25Q128: "Winbond W25Q 128Mb",
	flashIDWinbondW25Q80:  "Winbond W25Q 8Mb",
	flashIDMacronixMX25L8: "Macronix MX25L 8Mb",
}

// Name returns the chip name for known IDs.
func (id FlashID) Name() (string, bool) {
	name, ok := knownFlash[id]
	return name, ok
}

func (id FlashID) String() string {
	return fmt.Sprintf("0x%02x 0x%02x 0x%02x", id[0], id[1], id[2])
}
