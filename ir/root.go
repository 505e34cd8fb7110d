package ir

// RootAddress follows an address through field, element and cast
// instructions to the instruction that produced the underlying location.
// It reports false when h does not name a live instruction or the chain does
// not terminate.
func RootAddress(m *Module, h InstHandle) (InstHandle, bool) {
	// A well-formed chain visits each instruction at most once.
	for steps := 0; steps <= len(m.Insts); steps++ {
		inst := m.Inst(h)
		if inst == nil {
			return NoInst, false
		}
		switch k := inst.Kind.(type) {
		case InstFieldAddress:
			h = k.Base
		case InstElementAddress:
			h = k.Base
		case InstAddressCast:
			h = k.Value
		default:
			return h, true
		}
	}
	return NoInst, false
}
