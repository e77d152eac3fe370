package component

import "context"

// HealthStatus represents the health state of a component.
type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDegraded  HealthStatus = "degraded"
)

// Health holds health information for a component.
type Health struct {
	Name    string       `json:"name"`
	Status  HealthStatus `json:"status"`
	Message string       `json:"message,omitempty"`
}

// Component is a part of the container with its own start and stop.
type Component interface {
	// Name returns the unique name of the component for registration.
	Name() string

	// Start acquires the component's resources.
	Start(ctx context.Context) error

	// Stop releases the component's resources.
	Stop(ctx context.Context) error

	// Health returns the current health status of the component.
	Health(ctx context.Context) Health
}

// Description is what a component reports about itself in the startup summary.
type Description struct {
	// Name is the display name. If empty, the component's Name() is used.
	Name string
	// Type categorizes the component, e.g. "store" or "worker".
	Type string
	// Details is a one-liner shown next to the name.
	Details string
}

// Describable is optionally implemented by components that want a richer
// line in the startup summary.
type Describable interface {
	Describe() Description
}
