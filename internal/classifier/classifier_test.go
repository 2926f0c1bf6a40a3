package classifier

import (
	"testing"

	"github.com/costguardian/costguardian/internal/config"
	"github.com/costguardian/costguardian/internal/resource"
)

func thresholds() config.Thresholds {
	return config.Thresholds{
		CPUIdlePct:          5.0,
		DBIOPSFloor:         100,
		NATGWIdleBytes:      1 << 20,
		LBMinHealthyTargets: 1,
		LBIdleRequests:      10,
		LBIdleBytes:         1_000_000,
		VPCMinAgeDays:       7,
	}
}

func TestIdleRules(t *testing.T) {
	th := thresholds()

	tests := []struct {
		name string
		typ  resource.Type
		sig  resource.Signals
		want bool
	}{
		{"compute below cpu threshold", resource.TypeComputeInstance, resource.Signals{CPUAveragePct: 2.4}, true},
		{"compute busy", resource.TypeComputeInstance, resource.Signals{CPUAveragePct: 41.0}, false},
		{"compute stopped", resource.TypeComputeInstance, resource.Signals{Stopped: true, CPUAveragePct: 0}, true},

		{"database no connections low iops", resource.TypeDatabaseInstance, resource.Signals{Connections: 0, IOPSTotal: 12}, true},
		{"database connected", resource.TypeDatabaseInstance, resource.Signals{Connections: 3, IOPSTotal: 12}, false},
		{"database iops above floor", resource.TypeDatabaseInstance, resource.Signals{Connections: 0, IOPSTotal: 900}, false},
		{"database stopped", resource.TypeDatabaseInstance, resource.Signals{Stopped: true}, true},

		{"natgw no traffic", resource.TypeNATGateway, resource.Signals{BytesIn: 1000, BytesOut: 2000}, true},
		{"natgw at floor", resource.TypeNATGateway, resource.Signals{BytesIn: 1 << 20}, true},
		{"natgw busy", resource.TypeNATGateway, resource.Signals{BytesIn: 5 << 20, BytesOut: 1 << 20}, false},

		{"lb no healthy targets", resource.TypeLoadBalancer, resource.Signals{HealthyTargets: 0, RequestCount: 90000}, true},
		{"lb healthy and quiet", resource.TypeLoadBalancer, resource.Signals{HealthyTargets: 2, RequestCount: 4, BytesIn: 100}, true},
		{"lb healthy and busy", resource.TypeLoadBalancer, resource.Signals{HealthyTargets: 2, RequestCount: 50000}, false},

		{"volume unattached", resource.TypeBlockVolume, resource.Signals{Attached: false}, true},
		{"volume attached", resource.TypeBlockVolume, resource.Signals{Attached: true}, false},

		{"eip unassociated", resource.TypeElasticIP, resource.Signals{Attached: false}, true},
		{"eip associated", resource.TypeElasticIP, resource.Signals{Attached: true}, false},

		{"bucket empty", resource.TypeObjectStoreBucket, resource.Signals{ObjectCount: 0}, true},
		{"bucket holding objects", resource.TypeObjectStoreBucket, resource.Signals{ObjectCount: 1}, false},

		{"vpc unused and old", resource.TypeNetworkContainer, resource.Signals{AttachmentCount: 0, AgeDays: 30}, true},
		{"vpc unused but young", resource.TypeNetworkContainer, resource.Signals{AttachmentCount: 0, AgeDays: 2}, false},
		{"vpc in use", resource.TypeNetworkContainer, resource.Signals{AttachmentCount: 4, AgeDays: 30}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Idle(tc.typ, tc.sig, th); got != tc.want {
				t.Fatalf("Idle(%s, %+v) = %v, want %v", tc.typ, tc.sig, got, tc.want)
			}
		})
	}
}

// Same inputs always produce the same verdict; classification reads no
// state beyond its arguments.
func TestIdleIsPure(t *testing.T) {
	th := thresholds()
	sig := resource.Signals{CPUAveragePct: 3.3}

	first := Idle(resource.TypeComputeInstance, sig, th)
	for i := 0; i < 100; i++ {
		if Idle(resource.TypeComputeInstance, sig, th) != first {
			t.Fatalf("verdict changed between identical calls")
		}
	}
}
