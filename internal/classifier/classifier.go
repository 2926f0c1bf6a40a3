// Package classifier decides whether a resource is idle. Classification is
// a pure function of (type, signals, thresholds): no I/O, no clock, no
// provider state beyond what the scanner already observed.
package classifier

import (
	"github.com/costguardian/costguardian/internal/config"
	"github.com/costguardian/costguardian/internal/resource"
)

// Idle applies the type-specific rule to a resource's signals.
func Idle(t resource.Type, sig resource.Signals, th config.Thresholds) bool {
	switch t {
	case resource.TypeComputeInstance:
		// A stopped instance is idle by definition; a running one is idle
		// when mean CPU over the window is below the threshold.
		return sig.Stopped || sig.CPUAveragePct < th.CPUIdlePct

	case resource.TypeDatabaseInstance:
		return sig.Stopped || (sig.Connections == 0 && sig.IOPSTotal < th.DBIOPSFloor)

	case resource.TypeNATGateway:
		return sig.BytesIn+sig.BytesOut <= th.NATGWIdleBytes

	case resource.TypeLoadBalancer:
		if sig.HealthyTargets < th.LBMinHealthyTargets {
			return true
		}
		return sig.RequestCount <= th.LBIdleRequests && sig.BytesIn+sig.BytesOut <= th.LBIdleBytes

	case resource.TypeBlockVolume, resource.TypeElasticIP:
		// Unattached storage and addresses are idle by non-attachment.
		return !sig.Attached

	case resource.TypeObjectStoreBucket:
		return sig.ObjectCount == 0

	case resource.TypeNetworkContainer:
		return sig.AttachmentCount == 0 && sig.AgeDays >= th.VPCMinAgeDays
	}

	return false
}
