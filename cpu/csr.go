package cpu

// CSR numbers for the machine-level registers this sandbox implements.
// Numbering matches the RISC-V privileged specification so transpiled
// Zicsr instructions (which carry the raw 12-bit CSR number) need no
// translation.
const (
	MSTATUS  uint16 = 0x300
	MIE      uint16 = 0x304
	MTVEC    uint16 = 0x305
	MSCRATCH uint16 = 0x340
	MEPC     uint16 = 0x341
	MCAUSE   uint16 = 0x342
	MTVAL    uint16 = 0x343
	MIP      uint16 = 0x344
)

// mstatus / mie / mip bit positions this sandbox interprets.
const (
	MStatusMIE = 1 << 3  // global interrupt enable
	MIEMEIE    = 1 << 11 // machine external interrupt enable
	MIPMEIP    = 1 << 11 // machine external interrupt pending
)

// CauseExternalInterrupt is the mcause value for a host-triggered
// external interrupt: the interrupt bit (bit 31) set, cause code 11.
const CauseExternalInterrupt uint32 = 0x8000_000b

// CSRFile holds the implemented machine CSRs. Reads/writes to any other
// CSR number are routed through Read/Write/SetBits/ClearBits, which
// report whether the number is implemented so the caller can apply its
// configured policy (silently ignore, or fault) for the rest.
type CSRFile struct {
	MStatus  uint32
	MIE      uint32
	MIP      uint32
	MTVec    uint32
	MScratch uint32
	MEPC     uint32
	MCause   uint32
	MTVal    uint32
}

func (c *CSRFile) slot(csr uint16) *uint32 {
	switch csr {
	case MSTATUS:
		return &c.MStatus
	case MIE:
		return &c.MIE
	case MIP:
		return &c.MIP
	case MTVEC:
		return &c.MTVec
	case MSCRATCH:
		return &c.MScratch
	case MEPC:
		return &c.MEPC
	case MCAUSE:
		return &c.MCause
	case MTVAL:
		return &c.MTVal
	}
	return nil
}

// Read returns (value, true) for an implemented CSR, or (0, false)
// otherwise.
func (c *CSRFile) Read(csr uint16) (uint32, bool) {
	if p := c.slot(csr); p != nil {
		return *p, true
	}
	return 0, false
}

// Write stores v into an implemented CSR and returns the old value and
// true; returns (0, false) for an unimplemented CSR number without
// modifying anything.
func (c *CSRFile) Write(csr uint16, v uint32) (uint32, bool) {
	p := c.slot(csr)
	if p == nil {
		return 0, false
	}
	old := *p
	*p = v
	return old, true
}

// SetBits ORs mask into an implemented CSR and returns its prior value.
func (c *CSRFile) SetBits(csr uint16, mask uint32) (uint32, bool) {
	p := c.slot(csr)
	if p == nil {
		return 0, false
	}
	old := *p
	*p |= mask
	return old, true
}

// ClearBits ANDs NOT mask into an implemented CSR and returns its prior
// value.
func (c *CSRFile) ClearBits(csr uint16, mask uint32) (uint32, bool) {
	p := c.slot(csr)
	if p == nil {
		return 0, false
	}
	old := *p
	*p &^= mask
	return old, true
}
