package resource

import "time"

// Type identifies the kind of resource under lifecycle management.
// The set is closed: adding a type means adding a scanner, a classifier
// rule, and an executor strategy for it.
type Type string

const (
	TypeComputeInstance   Type = "compute-instance"
	TypeDatabaseInstance  Type = "database-instance"
	TypeNATGateway        Type = "nat-gateway"
	TypeLoadBalancer      Type = "load-balancer"
	TypeBlockVolume       Type = "block-volume"
	TypeElasticIP         Type = "elastic-ip"
	TypeObjectStoreBucket Type = "object-store-bucket"
	TypeNetworkContainer  Type = "network-container"
)

// AllTypes returns every managed resource type.
func AllTypes() []Type {
	return []Type{
		TypeComputeInstance,
		TypeDatabaseInstance,
		TypeNATGateway,
		TypeLoadBalancer,
		TypeBlockVolume,
		TypeElasticIP,
		TypeObjectStoreBucket,
		TypeNetworkContainer,
	}
}

// serviceCodes maps a resource type to the short service code used in
// ledger rows and report breakdowns.
var serviceCodes = map[Type]string{
	TypeComputeInstance:   "EC2",
	TypeDatabaseInstance:  "RDS",
	TypeNATGateway:        "NAT_GATEWAY",
	TypeLoadBalancer:      "ALB",
	TypeBlockVolume:       "EBS",
	TypeElasticIP:         "EIP",
	TypeObjectStoreBucket: "S3_BUCKET",
	TypeNetworkContainer:  "VPC",
}

// serviceNames maps a service code to its human-readable display name.
var serviceNames = map[string]string{
	"EC2":         "EC2 Instances",
	"RDS":         "RDS Databases",
	"NAT_GATEWAY": "NAT Gateways",
	"ALB":         "Load Balancers",
	"EBS":         "EBS Volumes",
	"EIP":         "Elastic IPs",
	"S3_BUCKET":   "S3 Buckets",
	"VPC":         "VPCs",
}

// ServiceCode returns the short service code for a resource type.
func (t Type) ServiceCode() string {
	if code, ok := serviceCodes[t]; ok {
		return code
	}
	return string(t)
}

// ServiceName returns the display name for a service code.
func ServiceName(code string) string {
	if name, ok := serviceNames[code]; ok {
		return name
	}
	return code
}

// Stage is a resource's position in the lifecycle state machine.
type Stage string

const (
	StageActive      Stage = "active"
	StageIdleWarning Stage = "idle-warning"
	StageQuarantine  Stage = "quarantine"
	StageDeleted     Stage = "deleted"
)

// Order returns the stage's position in the lifecycle sequence. Stage
// numbers only ever increase for a resource, except on reactivation
// which resets to Active.
func (s Stage) Order() int {
	switch s {
	case StageActive:
		return 0
	case StageIdleWarning:
		return 1
	case StageQuarantine:
		return 2
	case StageDeleted:
		return 3
	}
	return -1
}

// Terminal reports whether the stage admits no further transitions.
func (s Stage) Terminal() bool {
	return s == StageDeleted
}

// Signals holds the utilization observations a scanner collected for one
// resource. Only the fields relevant to the resource's type are set.
type Signals struct {
	CPUAveragePct   float64 `json:"cpu_average_pct,omitempty"`
	Connections     float64 `json:"connections,omitempty"`
	IOPSTotal       float64 `json:"iops_total,omitempty"`
	BytesIn         float64 `json:"bytes_in,omitempty"`
	BytesOut        float64 `json:"bytes_out,omitempty"`
	RequestCount    float64 `json:"request_count,omitempty"`
	HealthyTargets  int     `json:"healthy_targets,omitempty"`
	Attached        bool    `json:"attached,omitempty"`
	ObjectCount     int64   `json:"object_count,omitempty"`
	AttachmentCount int     `json:"attachment_count,omitempty"`
	AgeDays         int     `json:"age_days,omitempty"`
	Stopped         bool    `json:"stopped,omitempty"`
}

// Candidate is one enumerated resource with its current signals, as
// produced by a scanner and consumed by the lifecycle engine.
type Candidate struct {
	Type        Type
	ID          string
	Name        string
	SizeLabel   string // instance type, volume class, DB class, or service code
	Region      string
	Tags        map[string]string
	Signals     Signals
	MonthlyCost float64
}

// Record is one ledger row: the state of a resource at one observation.
type Record struct {
	ResourceID    string
	ObservedAt    time.Time
	Type          Type
	Stage         Stage
	IdleCount     int
	Signals       Signals
	Name          string
	SizeLabel     string
	MonthlyCost   float64
	BackupRef     string
	FirstSeenAt   time.Time // first observation ever recorded for this resource
	TransitionAt  time.Time // when the current stage was entered
	QuarantinedAt time.Time // zero unless the resource has been quarantined
	DeletedAt     time.Time // zero unless the resource reached Deleted
	Vanished      bool      // deleted out of band, not by the engine
	Reason        string
}

// SavingsEvent is the immutable fact recorded when a resource reaches
// the terminal Deleted stage. It is never mutated after creation.
type SavingsEvent struct {
	ResourceID     string
	Type           Type
	SizeLabel      string
	MonthlySavings float64
	DeletedAt      time.Time
}
