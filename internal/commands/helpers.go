package commands

import (
	"fmt"
	"strings"
)

// enhanceError wraps an error with context and suggestions for common AWS issues.
func enhanceError(action string, err error) error {
	msg := err.Error()

	var hint string
	switch {
	case strings.Contains(msg, "NoCredentialProviders"):
		hint = "Configure AWS credentials: set AWS_PROFILE, AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY, or run 'aws configure'"
	case strings.Contains(msg, "ExpiredToken"):
		hint = "AWS session token expired. Refresh credentials or run 'aws sso login'"
	case strings.Contains(msg, "AccessDenied") || strings.Contains(msg, "UnauthorizedAccess"):
		hint = "Insufficient permissions. Apply the IAM policy from 'costguardian init' to your role/user"
	case strings.Contains(msg, "ResourceNotFoundException"):
		hint = "Ledger table not found. Create the DynamoDB table named in ledger_table (see 'costguardian init')"
	case strings.Contains(msg, "RequestExpired"):
		hint = "Request expired. Check system clock synchronization"
	case strings.Contains(msg, "Throttling"):
		hint = "AWS API rate limit hit. Lower concurrency or increase timeout"
	}

	if hint != "" {
		return fmt.Errorf("%s: %w\n  hint: %s", action, err, hint)
	}
	return fmt.Errorf("%s: %w", action, err)
}

// resolveProfile prefers the flag over the config file.
func resolveProfile() string {
	if profile != "" {
		return profile
	}
	return cfg.Profile
}

// resolveRegion prefers the flag over the config file; empty falls back
// to the SDK's default chain.
func resolveRegion() string {
	if region != "" {
		return region
	}
	return cfg.Region
}
