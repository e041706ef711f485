package memory

// Instrumented wraps another Memory and counts loads and stores per
// region, the way the teacher's vm.Memory tracked AccessCount/ReadCount/
// WriteCount across its segments. Hosts use it for fuzzing harnesses or
// coverage-style diagnostics; the dispatch loop never depends on it
// directly, it only ever sees the Memory interface.
type Instrumented struct {
	Backend Memory

	Loads      uint64
	Stores     uint64
	CodeLoads  uint64
	RAMLoads   uint64
	RAMStores  uint64
}

// NewInstrumented wraps backend with access counters.
func NewInstrumented(backend Memory) *Instrumented {
	return &Instrumented{Backend: backend}
}

func (m *Instrumented) Size() uint32 { return m.Backend.Size() }

func (m *Instrumented) Load(addr uint32, width int) ([]byte, error) {
	data, err := m.Backend.Load(addr, width)
	if err != nil {
		return nil, err
	}
	m.Loads++
	if addr < RAMBase {
		m.CodeLoads++
	} else {
		m.RAMLoads++
	}
	return data, nil
}

func (m *Instrumented) Store(addr uint32, width int, data []byte) error {
	if err := m.Backend.Store(addr, width, data); err != nil {
		return err
	}
	m.Stores++
	m.RAMStores++
	return nil
}
