package dto

import (
	"time"

	"github.com/upcb/cloudsec/internal/alerting"
	"github.com/upcb/cloudsec/internal/domain/alert"
	"github.com/upcb/cloudsec/internal/queue"
)

// CreateAlertRequest is the payload for creating an alert
type CreateAlertRequest struct {
	Title              string   `json:"title" validate:"required,max=200"`
	Description        string   `json:"description" validate:"required,max=2000"`
	Severity           string   `json:"severity" validate:"required,oneof=critical high medium low info"`
	ScanID             string   `json:"scan_id" validate:"omitempty,uuid"`
	PolicyID           string   `json:"policy_id" validate:"omitempty,max=100"`
	ResourceType       string   `json:"resource_type" validate:"omitempty,max=100"`
	ResourceID         string   `json:"resource_id" validate:"omitempty,max=200"`
	CloudProvider      string   `json:"cloud_provider" validate:"omitempty,oneof=aws azure gcp"`
	Region             string   `json:"region" validate:"omitempty,max=50"`
	AffectedResources  []string `json:"affected_resources" validate:"omitempty,dive,max=200"`
	RecommendedActions []string `json:"recommended_actions" validate:"omitempty,dive,max=500"`
}

// ToModel converts the request into an alert owned by userID
func (r *CreateAlertRequest) ToModel(userID string) *alert.Alert {
	return &alert.Alert{
		UserID:             userID,
		ScanID:             r.ScanID,
		PolicyID:           r.PolicyID,
		Title:              r.Title,
		Description:        r.Description,
		Severity:           r.Severity,
		ResourceType:       r.ResourceType,
		ResourceID:         r.ResourceID,
		CloudProvider:      r.CloudProvider,
		Region:             r.Region,
		AffectedResources:  r.AffectedResources,
		RecommendedActions: r.RecommendedActions,
	}
}

// CreateAlertResponse returns the ID of a created alert
type CreateAlertResponse struct {
	ID string `json:"id"`
}

// ListAlertsResponse is a paginated alert listing
type ListAlertsResponse struct {
	Alerts []*alert.Alert `json:"alerts"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// DeliveryMetricsResponse is the admin view of the delivery pipeline
type DeliveryMetricsResponse struct {
	Summary      alerting.Summary `json:"summary"`
	SLAThreshold int64            `json:"slaThreshold"` // milliseconds
	Health       string           `json:"health"`
	Queue        queue.Stats      `json:"queue"`
	Subscribers  map[string]int   `json:"subscribers"`
	GeneratedAt  time.Time        `json:"generatedAt"`
}
