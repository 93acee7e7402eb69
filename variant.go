package saturn

// Variant selects between the Saturn-family calculator models this core
// supports: the S/SX line (32K RAM, bank-select MMU configured lazily by
// ROM) and the GX line (128K RAM, MMU fully pre-configured at reset).
// Grounded on original_source/src/emu/init.c's opt_gx branch.
type Variant int

const (
	SX Variant = iota
	GX
)

func (v Variant) String() string {
	if v == GX {
		return "gx"
	}
	return "sx"
}

// ParseVariant returns GX for "gx" or "GX"; any other string, including
// mixed case such as "Gx", yields SX. Callers pass their input unchanged.
func ParseVariant(s string) Variant {
	if s == "gx" || s == "GX" {
		return GX
	}
	return SX
}

// defaultControllers returns the six memory-controller reset presets for
// the variant, per original_source/src/emu/init.c (init_saturn for SX,
// copy_old_saturn's opt_gx branch for GX — the GX line boots with its MMU
// already fully mapped, unlike SX which leaves controllers 1-4 untouched
// until ROM configures them).
func defaultControllers(v Variant) [numControllers]controller {
	if v == GX {
		// Each pair is (mask, base) with base&mask==base required for
		// covers() to ever match. RAM, Port1 and Port2 take
		// non-overlapping 256K buckets of the 20-bit address space; MMIO
		// is a 256-nibble window at 0; the bank-select trigger is a single
		// address whose earlier priority index lets it pre-empt Port2 at
		// that one location; ROM matches whatever is left.
		return [numControllers]controller{
			{unconfigured: 0, config: [2]uint32{0xfff00, 0x00000}}, // MMIO:  0x00000-0x000ff
			{unconfigured: 0, config: [2]uint32{0xc0000, 0x80000}}, // RAM:   0x80000-0xbffff
			{unconfigured: 0, config: [2]uint32{0xfffff, 0xfffff}}, // Bank:  0xfffff only
			{unconfigured: 0, config: [2]uint32{0xc0000, 0x40000}}, // Port1: 0x40000-0x7ffff
			{unconfigured: 0, config: [2]uint32{0xc0000, 0xc0000}}, // Port2: 0xc0000-0xffffe
			{unconfigured: 0, config: [2]uint32{0x00000, 0x00000}}, // ROM:   fallback, matches all
		}
	}
	return [numControllers]controller{
		{unconfigured: 1},
		{unconfigured: 2},
		{unconfigured: 2},
		{unconfigured: 2},
		{unconfigured: 2},
		{unconfigured: 0},
	}
}
