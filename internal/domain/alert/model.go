package alert

import "time"

// Alert represents a cloud-security finding raised for a user
type Alert struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	ScanID             string     `json:"scan_id,omitempty"`
	PolicyID           string     `json:"policy_id,omitempty"`
	Title              string     `json:"title"`
	Description        string     `json:"description"`
	Severity           string     `json:"severity"`
	Status             string     `json:"status"`
	ResourceType       string     `json:"resource_type"`
	ResourceID         string     `json:"resource_id"`
	CloudProvider      string     `json:"cloud_provider"`
	Region             string     `json:"region,omitempty"`
	AffectedResources  []string   `json:"affected_resources"`
	RecommendedActions []string   `json:"recommended_actions"`
	AcknowledgedBy     string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt     *time.Time `json:"acknowledged_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Alert severity levels, ordered from most to least urgent
const (
	SeverityCritical = "critical"
	SeverityHigh     = "high"
	SeverityMedium   = "medium"
	SeverityLow      = "low"
	SeverityInfo     = "info"
)

// Alert lifecycle status
const (
	StatusOpen          = "open"
	StatusAcknowledged  = "acknowledged"
	StatusResolved      = "resolved"
	StatusFalsePositive = "false_positive"
)

// Cloud providers
const (
	ProviderAWS   = "aws"
	ProviderAzure = "azure"
	ProviderGCP   = "gcp"
)

// Filter contains alert filtering options
type Filter struct {
	Severity string
	Status   string
}

// ValidSeverity reports whether s is one of the enumerated severities
func ValidSeverity(s string) bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	default:
		return false
	}
}

// ValidStatus reports whether s is one of the enumerated statuses
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusAcknowledged, StatusResolved, StatusFalsePositive:
		return true
	default:
		return false
	}
}
