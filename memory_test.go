package saturn

import "testing"

func TestMemoryImageRamSizing(t *testing.T) {
	mSX := NewMemoryImage(make([]byte, 0x40000), SX)
	if mSX.RamSize() != ramSizeSX {
		t.Fatalf("SX ram size = %d, want %d", mSX.RamSize(), ramSizeSX)
	}
	mGX := NewMemoryImage(make([]byte, 0x40000), GX)
	if mGX.RamSize() != ramSizeGX {
		t.Fatalf("GX ram size = %d, want %d", mGX.RamSize(), ramSizeGX)
	}
}

func TestRomIsReadOnly(t *testing.T) {
	rom := make([]byte, 0x40000)
	rom[5] = 0xa
	m := NewMemoryImage(rom, SX)
	if got := m.ReadROM(5); got != 0xa {
		t.Fatalf("ReadROM(5) = %x, want a", got)
	}
	m.WriteROM(5, 0x3)
	if got := m.ReadROM(5); got != 0xa {
		t.Fatalf("ReadROM(5) after write = %x, want unchanged a", got)
	}
	if m.RomWriteCount() != 1 {
		t.Fatalf("RomWriteCount = %d, want 1", m.RomWriteCount())
	}
}

func TestRamReadWriteOutOfRange(t *testing.T) {
	m := NewMemoryImage(make([]byte, 0x40000), SX)
	if got := m.ReadRAM(uint32(m.RamSize())); got != 0 {
		t.Fatalf("out-of-range ReadRAM = %x, want 0", got)
	}
	m.WriteRAM(uint32(m.RamSize()), 0xf) // must not panic
	m.WriteRAM(10, 0xf)
	if got := m.ReadRAM(10); got != 0xf {
		t.Fatalf("ReadRAM(10) = %x, want f", got)
	}
}

func TestPortBanksMaskAndWriteGate(t *testing.T) {
	m := NewMemoryImage(make([]byte, 0x40000), SX)
	if m.HasPort1() || m.HasPort2() {
		t.Fatalf("ports should be absent until installed")
	}
	m.SetPort1(make([]byte, 16), false)
	m.WritePort1(3, 0x7)
	if got := m.ReadPort1(3); got != 0 {
		t.Fatalf("write to read-only port1 landed: got %x", got)
	}
	m.SetPort2(make([]byte, 16), true)
	m.WritePort2(3, 0x7)
	if got := m.ReadPort2(3); got != 0x7 {
		t.Fatalf("ReadPort2(3) = %x, want 7", got)
	}
	if got := m.ReadPort2(3 + 16); got != 0x7 {
		t.Fatalf("port2 address did not wrap on mask: got %x", got)
	}
}
