package common

import (
	"strings"

	"github.com/google/uuid"
)

// NewCrisisID generates a unique crisis run ID with the "crisis_" prefix
func NewCrisisID() string {
	return "crisis_" + uuid.New().String()
}

// NewSignalID generates a unique signal ID with the "sig_" prefix
func NewSignalID() string {
	return "sig_" + uuid.New().String()
}

// DeriveCustomerID derives a stable external customer ID from a company
// name when the caller does not supply one.
func DeriveCustomerID(companyName string) string {
	name := strings.TrimSpace(strings.ToLower(companyName))
	if name == "" {
		name = "unknown"
	}
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "-", "_")
	if len(name) > 64 {
		name = name[:64]
	}
	return name
}
