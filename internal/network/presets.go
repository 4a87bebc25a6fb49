package network

import (
	"strings"

	"github.com/nephio-oran-claude-agents/internal/domain"
)

// ServicePreset is a per-service-type default QoS requirement, used to
// backfill a caller-declared QoS that omits some or all fields.
type ServicePreset struct {
	ServicePriority           int
	LatencyRequirementMs      float64
	ThroughputRequirementMbps float64
	ReliabilityPct            float64
	JitterMs                  float64
}

// ServicePresets maps a lower-cased service type to its default
// requirement. Unknown service types fall back to the "default" preset.
var ServicePresets = map[string]ServicePreset{
	string(domain.ServiceURLLC): {
		ServicePriority:           10,
		LatencyRequirementMs:      5.0,
		ThroughputRequirementMbps: 1.0,
		ReliabilityPct:            99.99,
		JitterMs:                  1.0,
	},
	string(domain.ServiceEMBB): {
		ServicePriority:           7,
		LatencyRequirementMs:      50.0,
		ThroughputRequirementMbps: 100.0,
		ReliabilityPct:            99.0,
		JitterMs:                  15.0,
	},
	string(domain.ServiceMMTC): {
		ServicePriority:           3,
		LatencyRequirementMs:      1000.0,
		ThroughputRequirementMbps: 0.1,
		ReliabilityPct:            95.0,
		JitterMs:                  100.0,
	},
	string(domain.ServiceDefault): {
		ServicePriority:           5,
		LatencyRequirementMs:      100.0,
		ThroughputRequirementMbps: 5.0,
		ReliabilityPct:            98.0,
		JitterMs:                  20.0,
	},
}

// PresetFor returns the preset for serviceType (case-insensitive), falling
// back to the "default" preset for unknown/empty types.
func PresetFor(serviceType string) ServicePreset {
	key := strings.ToLower(strings.TrimSpace(serviceType))
	if p, ok := ServicePresets[key]; ok {
		return p
	}
	return ServicePresets[string(domain.ServiceDefault)]
}

// BackfillDeclaredQoS returns a DeclaredQoS with any zero-valued field
// filled in from serviceType's preset. A nil input is treated as an
// all-zero declaration carrying only serviceType.
func BackfillDeclaredQoS(serviceType string, qos *domain.DeclaredQoS) domain.DeclaredQoS {
	preset := PresetFor(serviceType)

	out := domain.DeclaredQoS{ServiceType: domain.ServiceType(strings.ToLower(serviceType))}
	if out.ServiceType == "" {
		out.ServiceType = domain.ServiceDefault
	}
	if qos != nil {
		out = *qos
		if out.ServiceType == "" {
			out.ServiceType = domain.ServiceType(strings.ToLower(serviceType))
		}
	}

	if out.ServicePriority == 0 {
		out.ServicePriority = preset.ServicePriority
	}
	if out.LatencyRequirementMs == 0 {
		out.LatencyRequirementMs = preset.LatencyRequirementMs
	}
	if out.ThroughputRequirementMbps == 0 {
		out.ThroughputRequirementMbps = preset.ThroughputRequirementMbps
	}
	if out.ReliabilityPct == 0 {
		out.ReliabilityPct = preset.ReliabilityPct
	}
	if out.JitterMs == 0 {
		out.JitterMs = preset.JitterMs
	}
	return out
}
