package render

import "github.com/aretw0/tether/pkg/domain"

// DefaultTopology lists the state fields whose change forces a full render.
var DefaultTopology = []string{domain.FieldSampleRate}

// Decide returns FullRender when previous is nil or any topology field differs
// between previous and next; otherwise IncrementalUpdate.
// A nil topology means DefaultTopology.
func Decide(previous *domain.HostState, next domain.HostState, topology []string) domain.Decision {
	if previous == nil {
		return domain.DecisionFullRender
	}
	if topology == nil {
		topology = DefaultTopology
	}
	for _, name := range topology {
		pv, pok := previous.Field(name)
		nv, nok := next.Field(name)
		if pok != nok || !domain.Equal(pv, nv) {
			return domain.DecisionFullRender
		}
	}
	return domain.DecisionIncrementalUpdate
}
