package saturn

import "github.com/golang/glog"

// CPU interpreter (C5): Saturn register file, program status, return
// stack, and the per-instruction fetch/decode/execute loop. Grounded on
// the teacher's nes/cpu.go (status flags as a struct with encode/decode,
// a table of addressing modes, a single Step entry point) generalized
// from a byte-oriented 6502 to the Saturn's nibble-oriented, variable
// field-width ISA.

const (
	rstkDepth = 8
	pstatBits = 16
)

// CPU holds all Saturn register state. It has non-owning handles to the
// MMU (itself wired to the memory image and I/O register block) — the
// CPU never allocates or frees memory, per spec §3 "Ownership".
type CPU struct {
	A, B, C, D     Register
	R0, R1, R2, R3, R4 Register
	IN             Register
	OUT            Register

	D0, D1 uint32 // 20-bit data pointers
	P      int    // field pointer, 0..15
	PC     uint32 // 20-bit program counter

	carry bool
	pstat [pstatBits]bool
	xm, sb, sr, mp bool
	hexmode DecimalMode

	rstk  [rstkDepth]uint32
	rstkp int // -1..7

	intEnable  bool
	intPending bool
	kbdIEn     bool
	shutdown   bool

	variant Variant
	mmu     *MMU
	kbd     *Keyboard

	guestInvalidCount uint64
	guestRomWriteCount uint64
}

// NewCPU builds a CPU wired to mmu and kbd for the given variant.
func NewCPU(mmu *MMU, kbd *Keyboard, variant Variant) *CPU {
	c := &CPU{
		A:  make(Register, 16),
		B:  make(Register, 16),
		C:  make(Register, 16),
		D:  make(Register, 16),
		R0: make(Register, 16),
		R1: make(Register, 16),
		R2: make(Register, 16),
		R3: make(Register, 16),
		R4: make(Register, 16),
		IN: make(Register, 4),
		OUT: make(Register, 3),
		mmu: mmu,
		kbd: kbd,
		variant: variant,
	}
	c.Reset()
	return c
}

// Reset performs the full-reset lifecycle of spec §3: PC to the ROM
// entrypoint, registers and flags zeroed, PSTAT cleared, hex mode, timers
// armed to default ticks (by Scheduler, not here), and the MMU's
// controllers reinitialized to the variant preset.
func (c *CPU) Reset() {
	for _, r := range []Register{c.A, c.B, c.C, c.D, c.R0, c.R1, c.R2, c.R3, c.R4, c.IN, c.OUT} {
		for i := range r {
			r[i] = 0
		}
	}
	c.D0, c.D1 = 0, 0
	c.P = 0
	c.PC = 0x00000
	c.carry = false
	for i := range c.pstat {
		c.pstat[i] = false
	}
	c.xm, c.sb, c.sr, c.mp = false, false, false, false
	c.hexmode = Hex
	c.rstkp = -1
	for i := range c.rstk {
		c.rstk[i] = 0
	}
	c.intEnable = true
	c.intPending = false
	c.kbdIEn = true
	c.shutdown = false
	if c.mmu != nil {
		c.mmu.Reset()
	}
}

// PushReturn pushes addr onto the 8-slot return stack. Pushing when
// rstkp == 7 shifts the stack down one and writes to slot 7 (a ring that
// discards the oldest entry), per spec §4.5 and scenario S3.
func (c *CPU) PushReturn(addr uint32) {
	if c.rstkp < rstkDepth-1 {
		c.rstkp++
		c.rstk[c.rstkp] = addr
		return
	}
	for i := 0; i < rstkDepth-1; i++ {
		c.rstk[i] = c.rstk[i+1]
	}
	c.rstk[rstkDepth-1] = addr
}

// PopReturn pops and returns the top of the return stack. Popping when
// rstkp == -1 is undefined on real hardware; this core returns 0
// explicitly rather than rolling garbage, per spec §4.5.
func (c *CPU) PopReturn() uint32 {
	if c.rstkp < 0 {
		return 0
	}
	v := c.rstk[c.rstkp]
	c.rstkp--
	return v
}

// fetchNibble reads the nibble at PC+offset. Each decoder fetches only the
// nibbles of its own instruction, never past it, as required to correctly
// emulate jumps into partially-defined memory (spec §9 "Opcode dispatch").
func (c *CPU) fetchNibble(offset uint32) byte {
	return c.mmu.ReadNibble(c.PC + offset)
}

// Shutdown reports whether the SHUTDN opcode has halted instruction
// consumption pending an interrupt wakeup.
func (c *CPU) Shutdown() bool { return c.shutdown }

// wake clears the shutdown flag; called by Step when a pending interrupt
// (timer or keyboard) should resume execution.
func (c *CPU) wake() { c.shutdown = false }

// RaiseKeyboardInterrupt is do_kbd_int from the original: called by the
// scheduler when kbd_ien is set and any keyboard row is nonzero.
func (c *CPU) RaiseKeyboardInterrupt() {
	if c.kbdIEn {
		c.intPending = true
	}
}

// RaiseTimerInterrupt marks int_pending for a timer wrap (T1 or T2,
// the caller already checked the relevant enable bit).
func (c *CPU) RaiseTimerInterrupt() {
	c.intPending = true
}

// Step executes exactly one instruction at PC (or, if shutdown is set and
// no interrupt is pending, does nothing and returns immediately — the
// scheduler still "spends" the instruction budget slot, matching the
// original's busy-wait during SHUTDN). Before the instruction, pending
// interrupts are serviced per spec §4.5.
func (c *CPU) Step() {
	if c.shutdown && !c.intPending {
		return
	}
	if c.shutdown && c.intPending {
		c.wake()
	}
	if c.intEnable && c.intPending {
		c.serviceInterrupt()
	}
	c.execOne()
}

// serviceInterrupt pushes PC and jumps to the fixed interrupt vector
// 0x0000F, disabling further interrupts until RTI (spec §4.5).
func (c *CPU) serviceInterrupt() {
	c.PushReturn(c.PC)
	c.PC = 0x0000F
	c.intPending = false
	c.intEnable = false
}

// decodeFailed handles GuestInvalid (spec §7): logs a warning and treats
// the opcode as a length-1 NOP so a buggy or partially-initialized ROM
// can never wedge the interpreter.
func (c *CPU) decodeFailed(opcodeNibble byte) {
	c.guestInvalidCount++
	glog.Warningf("saturn: unassigned opcode nibble 0x%x at PC=0x%05x, treating as NOP", opcodeNibble, c.PC)
	c.PC = (c.PC + 1) & 0xfffff
}

// GuestInvalidCount / GuestRomWriteCount expose the §7 error counters for
// diagnostics; they are never returned as Go errors.
func (c *CPU) GuestInvalidCount() uint64  { return c.guestInvalidCount }
func (c *CPU) GuestRomWriteCount() uint64 { return c.mmu.mem.RomWriteCount() }

// PSTAT accessors, consumed by compare-and-branch and set/clear opcodes.
func (c *CPU) SetProgramStat(n int)   { c.pstat[n&0xf] = true }
func (c *CPU) ClearProgramStat(n int) { c.pstat[n&0xf] = false }
func (c *CPU) ProgramStat(n int) bool { return c.pstat[n&0xf] }

// HexMode / SetHexMode toggle decimal vs hexadecimal ALU correction.
func (c *CPU) HexMode() DecimalMode     { return c.hexmode }
func (c *CPU) SetHexMode(m DecimalMode) { c.hexmode = m }

// Carry is the ALU's sticky 1-bit carry/borrow flag.
func (c *CPU) Carry() bool      { return c.carry }
func (c *CPU) SetCarry(v bool)  { c.carry = v }
