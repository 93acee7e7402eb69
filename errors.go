package saturn

import "errors"

// Error kinds from spec §7. File-layer errors surface to the host through
// init/snapshot-save return values (wrapped with fmt.Errorf elsewhere);
// CPU-time errors (GuestInvalid, GuestRomWrite) never propagate as Go
// errors — they bump a counter (GuestInvalid on the CPU, GuestRomWrite on
// the memory image) and execution continues.
var (
	ErrIoRead      = errors.New("saturn: failed to read file")
	ErrIoWrite     = errors.New("saturn: failed to write file")
	ErrBadSnapshot = errors.New("saturn: snapshot magic/version not recognized")
	ErrBadRomSize  = errors.New("saturn: rom file is not a supported size")
	ErrAllocFailed = errors.New("saturn: could not allocate RAM backing")
)
