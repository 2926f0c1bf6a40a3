package pricing

import (
	_ "embed"
	"encoding/json"
	"log/slog"
)

const hoursPerMonth = 730

//go:embed pricing.json
var pricingData []byte

// pricingDB holds the parsed pricing data keyed by resource type, then
// instance/volume type, then region. Hourly rates except where noted.
var pricingDB map[string]map[string]map[string]float64

func init() {
	if err := json.Unmarshal(pricingData, &pricingDB); err != nil {
		slog.Warn("Failed to parse embedded pricing data", "error", err)
		pricingDB = make(map[string]map[string]map[string]float64)
	}
}

// lookupHourly returns the hourly on-demand price for a resource type,
// instance type, and region. Returns 0 and false if not found.
func lookupHourly(resourceType, instanceType, region string) (float64, bool) {
	types, ok := pricingDB[resourceType]
	if !ok {
		return 0, false
	}
	regions, ok := types[instanceType]
	if !ok {
		return 0, false
	}
	price, ok := regions[region]
	if !ok {
		// Fall back to us-east-1 as default
		price, ok = regions["us-east-1"]
		if !ok {
			return 0, false
		}
	}
	return price, true
}

// MonthlyEC2Cost returns the estimated monthly cost for an EC2 instance
// type in a region. Returns 0 if the type is not in the pricing table.
func MonthlyEC2Cost(instanceType, region string) float64 {
	hourly, ok := lookupHourly("ec2", instanceType, region)
	if !ok {
		return 0
	}
	return hourly * hoursPerMonth
}

// MonthlyRDSCost returns the estimated monthly cost for an RDS instance.
// If multiAZ is true, the cost is doubled.
func MonthlyRDSCost(instanceClass, region string, multiAZ bool) float64 {
	hourly, ok := lookupHourly("rds", instanceClass, region)
	if !ok {
		return 0
	}
	cost := hourly * hoursPerMonth
	if multiAZ {
		cost *= 2
	}
	return cost
}

// MonthlyEBSCost returns the estimated monthly cost for an EBS volume.
// Price is per GiB per month.
func MonthlyEBSCost(volumeType string, sizeGiB int, region string) float64 {
	perGiB, ok := lookupHourly("ebs", volumeType, region)
	if !ok {
		return 0
	}
	return perGiB * float64(sizeGiB)
}

// MonthlyNATGatewayCost returns the base monthly cost of a NAT Gateway
// (excluding data transfer).
func MonthlyNATGatewayCost(region string) float64 {
	hourly, ok := lookupHourly("nat_gateway", "default", region)
	if !ok {
		return 0
	}
	return hourly * hoursPerMonth
}

// MonthlyLoadBalancerCost returns the base monthly cost of an ALB or NLB
// (excluding LCU charges).
func MonthlyLoadBalancerCost(lbType, region string) float64 {
	key := "alb"
	if lbType == "network" {
		key = "nlb"
	}
	hourly, ok := lookupHourly(key, "default", region)
	if !ok {
		return 0
	}
	return hourly * hoursPerMonth
}

// MonthlyEIPCost returns the monthly cost of an unassociated Elastic IP.
func MonthlyEIPCost(region string) float64 {
	hourly, ok := lookupHourly("eip", "default", region)
	if !ok {
		return 0
	}
	return hourly * hoursPerMonth
}
