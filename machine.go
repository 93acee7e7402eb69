package saturn

import (
	"fmt"
	"image"
	"os"

	"github.com/golang/glog"
)

// Machine wires C1-C8 into the single owned value spec §9 calls for
// ("Reframe as a Machine value owned by the top-level host shim; all
// entry points in §6 are methods on it. No ambient statics."). Grounded
// on the teacher's nes/console.go NesConsole, which plays the identical
// role (owns cpu/ppu/apu/controller, exposes Reset/Step/Frame as the
// host boundary) for the NES architecture.
type Machine struct {
	variant Variant
	mem     *MemoryImage
	io      *IORegisters
	mmu     *MMU
	cpu     *CPU
	kbd     *Keyboard
	sched   *Scheduler
	lcd     *LCD

	ramPath string
}

// Init is the host → core entry point of spec §6: init(rom_path, ram_path,
// conf_path, variant). It loads ROM (fatal to init on a bad size),
// allocates RAM for the variant, applies conf_path overrides, and then
// attempts a snapshot load; on any snapshot failure the CPU falls back to
// the variant's fresh-boot preset (spec §3 "Lifecycle").
func Init(romPath, ramPath, confPath, snapshotPath string, variant Variant) (*Machine, error) {
	rom, err := os.ReadFile(romPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrIoRead, romPath, err)
	}
	if !validRomSize(len(rom)) {
		return nil, ErrBadRomSize
	}

	cfg := defaultConfig()
	if confPath != "" {
		if c, err := loadConfig(confPath); err == nil {
			cfg = c
		} else {
			glog.Warningf("saturn: could not read config %s: %v", confPath, err)
		}
	}
	if cfg.variant != nil {
		variant = *cfg.variant
	}

	m := newMachine(rom, variant)
	m.ramPath = ramPath
	m.sched.overrideTicks(cfg.t1Tick, cfg.t2Tick)
	m.sched.overridePacing(cfg.ips, cfg.maxBatch)
	if cfg.contrast != 0 {
		m.io.SetContrast(cfg.contrast)
	}

	if ramData, err := os.ReadFile(ramPath); err == nil {
		loadPackedOrFlat(ramData, m.mem.ram)
	}

	if snapshotPath != "" {
		if err := m.LoadSnapshot(snapshotPath); err != nil {
			glog.Infof("saturn: snapshot load failed (%v), starting fresh", err)
			m.cpu.Reset()
		}
	}

	return m, nil
}

func newMachine(rom []byte, variant Variant) *Machine {
	mem := NewMemoryImage(rom, variant)
	io := NewIORegisters()
	mmu := NewMMU(mem, io, variant)
	io.bindMMU(mmu)
	kbd := &Keyboard{}
	cpu := NewCPU(mmu, kbd, variant)
	sched := NewScheduler(cpu, io, kbd)
	lcd := NewLCD(mmu, io)

	return &Machine{
		variant: variant,
		mem:     mem,
		io:      io,
		mmu:     mmu,
		cpu:     cpu,
		kbd:     kbd,
		sched:   sched,
		lcd:     lcd,
	}
}

func validRomSize(n int) bool {
	switch n {
	case 0x40000, 0x80000, 0x100000, 0x200000:
		return true
	default:
		return false
	}
}

// Tick progresses the emulator by elapsedMS of wall-clock time (spec §6).
func (m *Machine) Tick(elapsedMS float64) {
	m.sched.Tick(elapsedMS)
	m.lcd.Update()
}

// SetKey updates one keyboard row (spec §6). The host calls this only
// between frames (spec §5 "Concurrency").
func (m *Machine) SetKey(row int, bitmask uint16, pressed bool) {
	m.kbd.SetKey(row, bitmask, pressed)
}

// ShutdownRequested reports whether the guest has executed SHUTDN and is
// waiting for a wakeup interrupt.
func (m *Machine) ShutdownRequested() bool { return m.cpu.Shutdown() }

// RequestShutdown lets the host force a drain between frames (spec §5).
func (m *Machine) RequestShutdown() { m.cpu.shutdown = true }

// GetDisplayBuffer returns the RGBA pixel buffer (spec §6): width=262,
// height=142, stride=262*4, exposed through *image.RGBA's own fields.
func (m *Machine) GetDisplayBuffer() *image.RGBA { return m.lcd.DisplayBuffer() }

// GetAnnunciatorState returns the 6-bit annunciator byte (spec §6).
func (m *Machine) GetAnnunciatorState() byte { return m.lcd.Annunciators() }

// IsDisplayDirty / ClearDisplayDirty implement spec §6's dirty-flag pair.
func (m *Machine) IsDisplayDirty() bool { return m.lcd.IsDirty() }
func (m *Machine) ClearDisplayDirty()   { m.lcd.ClearDirty() }

// Shutdown performs the host's orderly-shutdown entry point (spec §6):
// writes RAM back to ramPath. It does not implicitly snapshot; callers
// wanting a resumable state call SnapshotSave explicitly.
func (m *Machine) Shutdown() error {
	if m.ramPath == "" {
		return nil
	}
	if err := os.WriteFile(m.ramPath, m.mem.ram, 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrIoWrite, m.ramPath, err)
	}
	return nil
}

// SnapshotSave writes the big-endian CPU+MMU+IO snapshot to path (spec §6,
// §4.8).
func (m *Machine) SnapshotSave(path string) error {
	return m.saveSnapshot(path)
}

// LoadSnapshot loads a snapshot from path, accepting both the current
// format and the documented legacy layout (spec §4.8, scenario S6).
func (m *Machine) LoadSnapshot(path string) error {
	return m.loadSnapshotFile(path)
}

// Reset performs a full reset of CPU, MMU and timers (spec §3).
func (m *Machine) Reset() {
	m.cpu.Reset()
	m.sched.Reset()
}

// Variant reports which calculator model this machine emulates.
func (m *Machine) Variant() Variant { return m.variant }

// testCPU, testMMU, testIO, testScheduler and testLCD expose the owned
// subsystems to this package's tests; they are unexported and not part of
// the host boundary of spec §6.
func (m *Machine) testCPU() *CPU           { return m.cpu }
func (m *Machine) testMMU() *MMU           { return m.mmu }
func (m *Machine) testIO() *IORegisters    { return m.io }
func (m *Machine) testScheduler() *Scheduler { return m.sched }
func (m *Machine) testLCD() *LCD           { return m.lcd }

// loadPackedOrFlat accepts either a flat one-nibble-per-byte RAM image or
// a packed two-nibbles-per-byte image (spec §9 "Packed nibble storage"):
// if the file is exactly half the size of dst, it's packed and is
// unpacked low-nibble-first.
func loadPackedOrFlat(data []byte, dst []byte) {
	if len(data) == len(dst) {
		copy(dst, data)
		for i := range dst {
			dst[i] &= 0xf
		}
		return
	}
	if len(data)*2 == len(dst) {
		unpackNibbles(data, dst)
		return
	}
	n := len(data)
	if n > len(dst) {
		n = len(dst)
	}
	copy(dst, data[:n])
}

func unpackNibbles(packed []byte, dst []byte) {
	for i, b := range packed {
		dst[2*i] = b & 0xf
		dst[2*i+1] = (b >> 4) & 0xf
	}
}

func packNibbles(flat []byte) []byte {
	out := make([]byte, (len(flat)+1)/2)
	for i := 0; i < len(flat); i += 2 {
		lo := flat[i] & 0xf
		hi := byte(0)
		if i+1 < len(flat) {
			hi = flat[i+1] & 0xf
		}
		out[i/2] = lo | hi<<4
	}
	return out
}
