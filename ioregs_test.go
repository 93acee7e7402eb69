package saturn

import "testing"

func TestDisplayGeometryRegisters(t *testing.T) {
	io := NewIORegisters()
	io.Write(ioDispIO, 0x8|0x2) // on, offset=2
	if !io.DisplayOn() {
		t.Fatalf("DisplayOn() = false, want true")
	}
	if io.DisplayOffset() != 2 {
		t.Fatalf("DisplayOffset() = %d, want 2", io.DisplayOffset())
	}

	for i := 0; i < 5; i++ {
		io.Write(ioDispAddr0+uint32(i), byte(i+1))
	}
	want := uint32(0x54321)
	if got := io.DispAddr(); got != want {
		t.Fatalf("DispAddr() = %#x, want %#x", got, want)
	}
}

func TestDisplayTouchedClearsOnAck(t *testing.T) {
	io := NewIORegisters()
	io.ClearDisplayTouched()
	if io.DisplayTouched() {
		t.Fatalf("DisplayTouched() = true after clear")
	}
	io.Write(ioDispIO, 0x8)
	if !io.DisplayTouched() {
		t.Fatalf("DisplayTouched() = false after a DISP IO write")
	}
}

func TestTimerControlArmsAndEnables(t *testing.T) {
	io := NewIORegisters()
	io.Write(ioT1Ctrl, 0x1)
	if !io.T1Enabled() {
		t.Fatalf("T1Enabled() = false after enable bit set")
	}
	if !io.T1ArmRequested() {
		t.Fatalf("T1ArmRequested() = false after T1CTRL write")
	}
	io.ClearT1ArmRequest()
	if io.T1ArmRequested() {
		t.Fatalf("T1ArmRequested() = true after clear")
	}
}

func TestRBRClearsPendingOnRead(t *testing.T) {
	io := NewIORegisters()
	io.ReceiveByte(0x7)
	if !io.RxPending() {
		t.Fatalf("RxPending() = false after ReceiveByte")
	}
	if got := io.Read(ioRBR); got != 0x7 {
		t.Fatalf("Read(RBR) = %x, want 7", got)
	}
	if io.RxPending() {
		t.Fatalf("RxPending() = true after a read")
	}
}

func TestCRCRegistersRoundTripThroughMMU(t *testing.T) {
	mem := NewMemoryImage(make([]byte, 0x40000), SX)
	io := NewIORegisters()
	mmu := NewMMU(mem, io, SX)
	io.bindMMU(mmu)

	mmu.SetCRC(0xabcd)
	if got := io.Read(ioCRC0); got != 0xd {
		t.Fatalf("Read(CRC0) = %x, want d", got)
	}
	if got := io.Read(ioCRC3); got != 0xa {
		t.Fatalf("Read(CRC3) = %x, want a", got)
	}
	io.Write(ioCRC0, 0x1)
	if mmu.CRC()&0xf != 0x1 {
		t.Fatalf("CRC low nibble = %x after write, want 1", mmu.CRC()&0xf)
	}
}
