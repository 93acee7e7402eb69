package saturn

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	m := newMachine(make([]byte, 0x40000), SX)
	m.cpu.A[3] = 7
	m.cpu.PC = 0x1234
	m.cpu.carry = true
	m.mem.ram[100] = 0xa
	m.kbd.SetRow(2, 0x55)
	m.mmu.ctl[ctlRAM] = controller{unconfigured: 0, config: [2]uint32{0xf0000, 0x70000}}

	path := filepath.Join(t.TempDir(), "snap.bin")
	if err := m.saveSnapshot(path); err != nil {
		t.Fatalf("saveSnapshot: %v", err)
	}

	m2 := newMachine(make([]byte, 0x40000), SX)
	if err := m2.loadSnapshotFile(path); err != nil {
		t.Fatalf("loadSnapshotFile: %v", err)
	}

	if m2.cpu.A[3] != 7 {
		t.Fatalf("A[3] = %d, want 7", m2.cpu.A[3])
	}
	if m2.cpu.PC != 0x1234 {
		t.Fatalf("PC = %#x, want 0x1234", m2.cpu.PC)
	}
	if !m2.cpu.carry {
		t.Fatalf("carry = false, want true")
	}
	if m2.mem.ram[100] != 0xa {
		t.Fatalf("ram[100] = %x, want a", m2.mem.ram[100])
	}
	if m2.kbd.Row(2) != 0x55 {
		t.Fatalf("keyboard row 2 = %#x, want 0x55", m2.kbd.Row(2))
	}
	if m2.mmu.ctl[ctlRAM].config != m.mmu.ctl[ctlRAM].config {
		t.Fatalf("RAM controller config = %v, want %v", m2.mmu.ctl[ctlRAM].config, m.mmu.ctl[ctlRAM].config)
	}
}

// buildLegacySnapshot writes a pre-0.3 layout buffer by hand, following
// the field order loadLegacySnapshot expects.
func buildLegacySnapshot(ramSize int, devices, ram32k uint32, ram []byte) []byte {
	var buf bytes.Buffer
	for i := 0; i < 9; i++ {
		buf.Write(make([]byte, 16))
	}
	binary.Write(&buf, binary.BigEndian, uint32(0)) // D0
	binary.Write(&buf, binary.BigEndian, uint32(0)) // D1
	buf.WriteByte(0)                                // P
	binary.Write(&buf, binary.BigEndian, uint32(0)) // PC
	buf.WriteByte(0)                                // carry
	buf.WriteByte(0)                                // hexmode
	binary.Write(&buf, binary.BigEndian, devices)
	binary.Write(&buf, binary.BigEndian, ram32k)
	binary.Write(&buf, binary.BigEndian, uint32(0)) // daisy_state, discarded
	binary.Write(&buf, binary.BigEndian, uint32(ramSize))
	buf.Write(packNibbles(ram))
	return buf.Bytes()
}

// TestLegacySnapshotLoad is scenario S6: a file without the magic, whose
// ram32k scalar is 0x70000, reconstructs controller 1 as mask=0xF0000,
// base=0x70000 (the same window exercised by the MMU dispatch scenario).
func TestLegacySnapshotLoad(t *testing.T) {
	ram := make([]byte, ramSizeSX)
	ram[42] = 0x3
	data := buildLegacySnapshot(len(ram), 0x100, 0x70000, ram)

	dir := t.TempDir()
	path := filepath.Join(dir, "legacy.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	m := newMachine(make([]byte, 0x40000), SX)
	if err := m.loadSnapshotFile(path); err != nil {
		t.Fatalf("loadSnapshotFile (legacy): %v", err)
	}

	ctl1 := m.mmu.ctl[ctlRAM]
	if ctl1.unconfigured != 0 || ctl1.config[0] != 0xf0000 || ctl1.config[1] != 0x70000 {
		t.Fatalf("controller 1 = %+v, want unconfigured=0 mask=0xf0000 base=0x70000", ctl1)
	}
	if m.mem.ram[42] != 0x3 {
		t.Fatalf("ram[42] = %x, want 3", m.mem.ram[42])
	}
}

func TestCurrentSnapshotMagicDetected(t *testing.T) {
	m := newMachine(make([]byte, 0x40000), SX)
	path := filepath.Join(t.TempDir(), "snap.bin")
	m.saveSnapshot(path)
	data, _ := os.ReadFile(path)
	if binary.BigEndian.Uint32(data[:4]) != snapshotMagic {
		t.Fatalf("saved snapshot missing magic")
	}
}
