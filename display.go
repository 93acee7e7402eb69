package saturn

import (
	"image"
	"image/color"
)

// LCD scan-out (C7): converts guest display RAM into an RGBA pixel buffer
// on demand (spec §4.7). Grounded on the teacher's nes/ppu.go, which
// renders into a *image.RGBA via SetRGBA and exposes it through
// Console.Frame(); generalized from the NES's fixed 256x240 tile/sprite
// pipeline to the HP-48's two-shadow-buffer nibble diffing scheme
// (original_source/src/emu/lcd.c:update_display).

const (
	dispRows       = 64
	nibblesPerRow  = 0x22 // NIBBLES_PER_ROW, original_source/src/emu/hp48.h
	nibsPerBufRow  = nibblesPerRow + 2

	displayWidth  = 262
	displayHeight = 142
	headerHeight  = 14
)

var (
	pixelOn  = color.RGBA{0x10, 0x20, 0x10, 0xFF}
	pixelOff = color.RGBA{0xBC, 0xC4, 0xA5, 0xFF}
)

// displayState is the cached snapshot of guest-visible LCD fields (spec
// §3 "Display state").
type displayState struct {
	on           bool
	dispStart    uint32
	nibsPerLine  int
	lines        int
	menuStart    uint32
	contrast     int
	annunc       byte

	offset   int // last-seen DISP IO offset, for geometry-change detection
}

// LCD owns the two shadow buffers and the RGBA output buffer.
type LCD struct {
	mmu *MMU
	io  *IORegisters

	state displayState

	dispBuf   [dispRows][nibsPerBufRow]byte
	lcdBuffer [dispRows][nibsPerBufRow]byte

	img   *image.RGBA
	dirty bool

	lastOffset int
	lastLines  int
}

// NewLCD builds an LCD scan-out engine wired to mmu (for reading guest
// display RAM) and io (for geometry registers).
func NewLCD(mmu *MMU, io *IORegisters) *LCD {
	l := &LCD{
		mmu: mmu,
		io:  io,
		img: image.NewRGBA(image.Rect(0, 0, displayWidth, displayHeight)),
	}
	l.lastOffset = -1
	l.lastLines = -1
	for i := range l.dispBuf {
		for j := range l.dispBuf[i] {
			l.dispBuf[i][j] = 0xf0
			l.lcdBuffer[i][j] = 0xf0
		}
	}
	l.fillOff()
	l.dirty = true
	return l
}

func (l *LCD) fillOff() {
	for y := 0; y < displayHeight; y++ {
		for x := 0; x < displayWidth; x++ {
			l.img.SetRGBA(x, y, pixelOff)
		}
	}
}

// refreshGeometry re-derives the cached display_t fields from the I/O
// register block, following original_source/src/emu/lcd.c:init_display.
func (l *LCD) refreshGeometry() {
	s := &l.state
	s.on = l.io.DisplayOn()
	s.dispStart = l.io.DispAddr() & 0xffffe
	s.offset = l.io.DisplayOffset()

	lines := l.io.LineCount()
	if lines == 0 {
		lines = 63
	}
	s.lines = lines

	lineOffset := l.io.LineOffset()
	if s.offset > 3 {
		s.nibsPerLine = (nibblesPerRow + lineOffset + 2) & 0xfff
	} else {
		s.nibsPerLine = (nibblesPerRow + lineOffset) & 0xfff
	}

	s.menuStart = l.io.MenuAddr()
	s.contrast = l.io.Contrast()
	s.annunc = l.io.Annunciator()
}

// Update runs one scan-out pass (spec §4.7's update_display). Call once
// per frame after Scheduler.Tick.
func (l *LCD) Update() {
	touched := l.io.DisplayTouched()
	if touched {
		l.io.ClearDisplayTouched()
	}
	l.refreshGeometry()
	s := &l.state

	if !s.on {
		for i := range l.dispBuf {
			for j := range l.dispBuf[i] {
				l.dispBuf[i][j] = 0xf0
			}
		}
		for row := 0; row < dispRows; row++ {
			for col := 0; col < nibblesPerRow; col++ {
				l.drawNibble(col, row, 0)
			}
		}
		return
	}

	if s.offset != l.lastOffset {
		for i := range l.dispBuf {
			for j := range l.dispBuf[i] {
				l.dispBuf[i][j] = 0xf0
				l.lcdBuffer[i][j] = 0xf0
			}
		}
		l.lastOffset = s.offset
	}
	if s.lines != l.lastLines {
		for i := 56; i < dispRows; i++ {
			for j := range l.dispBuf[i] {
				l.dispBuf[i][j] = 0xf0
				l.lcdBuffer[i][j] = 0xf0
			}
		}
		l.lastLines = s.lines
	}

	addr := s.dispStart
	row := 0
	for ; row <= s.lines && row < dispRows; row++ {
		l.drawRow(addr, row, s.nibsPerLine)
		addr += uint32(s.nibsPerLine)
	}

	addr = s.menuStart
	for ; row < dispRows; row++ {
		l.drawRow(addr, row, nibblesPerRow)
		addr += nibblesPerRow
	}
}

// drawRow reads lineLength nibbles from addr via the MMU and diffs them
// against disp_buf, re-rendering any that changed (spec §4.7).
func (l *LCD) drawRow(addr uint32, row int, lineLength int) {
	if lineLength > nibsPerBufRow {
		lineLength = nibsPerBufRow
	}
	for i := 0; i < lineLength; i++ {
		v := l.mmu.ReadNibble(addr + uint32(i))
		if v != l.dispBuf[row][i] {
			l.dispBuf[row][i] = v
			l.drawNibble(i, row, v)
		}
	}
}

// drawNibble diffs one nibble against lcd_buffer and, if different,
// re-renders its four HP pixels (each a 2x2 output block) into the RGBA
// buffer, setting the dirty flag.
func (l *LCD) drawNibble(col, row int, v byte) {
	v &= 0xf
	if v == l.lcdBuffer[row][col] {
		return
	}
	l.lcdBuffer[row][col] = v

	px := col * 8
	py := row*2 + headerHeight
	if py+1 >= displayHeight {
		return
	}
	for bit := 0; bit < 4; bit++ {
		c := px + bit*2
		if c+1 >= displayWidth {
			break
		}
		pix := pixelOff
		if v&(1<<bit) != 0 {
			pix = pixelOn
		}
		for r := 0; r < 2; r++ {
			l.img.SetRGBA(c, py+r, pix)
			if c+1 < displayWidth {
				l.img.SetRGBA(c+1, py+r, pix)
			}
		}
	}
	l.dirty = true
}

// DisplayBuffer returns the current RGBA buffer, matching spec §6's
// get_display_buffer (ptr, width, height, stride) via the *image.RGBA's
// own fields.
func (l *LCD) DisplayBuffer() *image.RGBA { return l.img }

// IsDirty / ClearDirty implement spec §6's dirty-flag pair.
func (l *LCD) IsDirty() bool  { return l.dirty }
func (l *LCD) ClearDirty()    { l.dirty = false }

// Annunciators unpacks the six annunciator bits (spec GLOSSARY order:
// LEFT, RIGHT, ALPHA, BATTERY, BUSY, IO).
func (l *LCD) Annunciators() byte { return l.state.annunc }
