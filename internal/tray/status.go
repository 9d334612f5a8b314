package tray

import (
	"encoding/binary"
	"fmt"

	"norse/internal/action"
)

// FormatBoolean renders a boolean action state for a status row.
func FormatBoolean(st action.StateBoolean) string {
	switch {
	case !st.IsActive:
		return "unbound"
	case st.CurrentState:
		return "on"
	default:
		return "off"
	}
}

// FormatFloat renders a float action state for a status row.
func FormatFloat(st action.StateFloat) string {
	if !st.IsActive {
		return "unbound"
	}
	return fmt.Sprintf("%.1f (%+.1f)", st.CurrentState, st.Delta)
}

// FormatVec2 renders a vec2 action state for a status row.
func FormatVec2(st action.StateVec2) string {
	if !st.IsActive {
		return "unbound"
	}
	return fmt.Sprintf("%.1f, %.1f (%+.1f, %+.1f)", st.X, st.Y, st.DeltaX, st.DeltaY)
}

const iconSize = 16

// icon builds a 16x16 32-bit ICO filled with a single color: grey while
// idle, green while input is flowing.
func icon(active bool) []byte {
	// BGRA
	color := [4]byte{0x80, 0x80, 0x80, 0xff}
	if active {
		color = [4]byte{0x40, 0xc0, 0x40, 0xff}
	}

	const (
		headerSize = 6
		entrySize  = 16
		dibSize    = 40
		pixelBytes = iconSize * iconSize * 4
		maskBytes  = iconSize * 4 // 1bpp rows padded to 32 bits
		imageSize  = dibSize + pixelBytes + maskBytes
	)
	buf := make([]byte, headerSize+entrySize+imageSize)
	le := binary.LittleEndian

	// ICONDIR
	le.PutUint16(buf[2:], 1) // type: icon
	le.PutUint16(buf[4:], 1) // count

	// ICONDIRENTRY
	entry := buf[headerSize:]
	entry[0] = iconSize
	entry[1] = iconSize
	le.PutUint16(entry[4:], 1)  // planes
	le.PutUint16(entry[6:], 32) // bpp
	le.PutUint32(entry[8:], imageSize)
	le.PutUint32(entry[12:], headerSize+entrySize)

	// BITMAPINFOHEADER, height doubled for the AND mask
	dib := buf[headerSize+entrySize:]
	le.PutUint32(dib[0:], dibSize)
	le.PutUint32(dib[4:], iconSize)
	le.PutUint32(dib[8:], iconSize*2)
	le.PutUint16(dib[12:], 1)
	le.PutUint16(dib[14:], 32)
	le.PutUint32(dib[20:], pixelBytes)

	pixels := dib[dibSize : dibSize+pixelBytes]
	for i := 0; i < len(pixels); i += 4 {
		copy(pixels[i:i+4], color[:])
	}
	return buf
}
