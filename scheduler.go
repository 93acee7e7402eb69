package saturn

// Scheduler & timers (C6): paces the interpreter to a target instruction
// rate and drives the two hardware timers (spec §4.6). Grounded on the
// teacher's nes/console.go Frame()/Step() loop (a host-driven tick that
// runs the CPU a bounded number of times and reports back), generalized
// from a fixed PPU-dot-clock cadence to the Saturn's wall-clock-paced,
// instruction-budget model.

const (
	targetIPS = 184000 // instructions per second, spec §4.6
	maxBatch  = 10000
	maxElapsedMS = 100 // clamp catch-up after host suspension
)

// Scheduler owns the two timer counters and paces CPU.Step calls against
// a host-supplied elapsed wall-clock delta.
type Scheduler struct {
	cpu *CPU
	io  *IORegisters
	kbd *Keyboard

	t1Instr int64
	t2Instr int64
	timer1  int8   // 4-bit signed tick, kept as int8 for sign-aware wrap
	timer2  uint32 // 32-bit tick
	t1Tick  int64
	t2Tick  int64

	ips      int // target instructions per second, overridable via config
	batchCap int // per-Tick instruction cap, overridable via config
}

// NewScheduler wires a scheduler to its CPU, I/O register block and
// keyboard, with the default tick arming from spec §D.1
// (t1_tick=8192, t2_tick=16, timer2 initial 0x2000).
func NewScheduler(cpu *CPU, io *IORegisters, kbd *Keyboard) *Scheduler {
	s := &Scheduler{cpu: cpu, io: io, kbd: kbd, ips: targetIPS, batchCap: maxBatch}
	s.armDefaults()
	return s
}

func (s *Scheduler) armDefaults() {
	s.t1Tick = 8192
	s.t2Tick = 16
	s.t1Instr = s.t1Tick
	s.t2Instr = s.t2Tick
	s.timer1 = 0
	s.timer2 = 0x2000
}

// Reset re-arms the timers to their defaults (called from Machine.Reset).
func (s *Scheduler) Reset() { s.armDefaults() }

// Tick is the host → core entry point of spec §6: it computes a clamped
// instruction budget from elapsedMS and runs the CPU that many times,
// calling schedule() after each instruction.
func (s *Scheduler) Tick(elapsedMS float64) {
	if elapsedMS > maxElapsedMS {
		elapsedMS = maxElapsedMS
	}
	target := int(float64(s.ips) * elapsedMS / 1000)
	if target < 1 {
		target = 1
	}
	if target > s.batchCap {
		target = s.batchCap
	}
	for i := 0; i < target; i++ {
		s.cpu.Step()
		s.schedule()
	}
}

// schedule runs once per instruction (spec §4.6): decrements the timer
// instruction counters, re-arms and raises interrupts on wrap, and checks
// the keyboard gate. Timer ticks are consumed before the next fetch, so
// interrupts raised here take effect on the following Step.
func (s *Scheduler) schedule() {
	s.t1Instr--
	if s.t1Instr <= 0 {
		s.t1Instr = s.t1Tick
		if s.io.T1Enabled() {
			s.timer1--
			if s.timer1 < 0 {
				s.cpu.RaiseTimerInterrupt()
			}
		}
		s.io.SetTimer1Value(s.timer1)
	}

	s.t2Instr--
	if s.t2Instr <= 0 {
		s.t2Instr = s.t2Tick
		if s.io.T2Enabled() {
			wrapped := s.timer2 == 0
			s.timer2--
			if wrapped {
				s.cpu.RaiseTimerInterrupt()
			}
		}
		s.io.SetTimer2Value(s.timer2)
	}

	if s.io.T1ArmRequested() {
		s.timer1 = 0
		s.t1Instr = s.t1Tick
		s.io.ClearT1ArmRequest()
	}
	if s.io.T2ArmRequested() {
		s.timer2 = 0x2000
		s.t2Instr = s.t2Tick
		s.io.ClearT2ArmRequest()
	}

	if s.kbd.AnyPressed() {
		s.cpu.RaiseKeyboardInterrupt()
	}
}

// overrideTicks lets the host's config file retune the timer cadence
// (SPEC_FULL.md §B's `t1_tick`/`t2_tick` keys) before the first Tick.
func (s *Scheduler) overrideTicks(t1Tick, t2Tick int64) {
	if t1Tick > 0 {
		s.t1Tick = t1Tick
		s.t1Instr = t1Tick
	}
	if t2Tick > 0 {
		s.t2Tick = t2Tick
		s.t2Instr = t2Tick
	}
}

// overridePacing lets the host's config file retune the instruction rate
// and per-Tick batch cap (SPEC_FULL.md §B's `target_ips`/`max_batch` keys).
func (s *Scheduler) overridePacing(ips, batchCap int) {
	if ips > 0 {
		s.ips = ips
	}
	if batchCap > 0 {
		s.batchCap = batchCap
	}
}

// Timer1 / Timer2 expose the running tick counters (used by tests and by
// the serializer).
func (s *Scheduler) Timer1() int8   { return s.timer1 }
func (s *Scheduler) Timer2() uint32 { return s.timer2 }

func (s *Scheduler) setTimers(t1 int8, t2 uint32) {
	s.timer1 = t1
	s.timer2 = t2
}
