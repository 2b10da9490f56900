package metering

import (
	"time"

	"github.com/waterworks/backend/internal/domain/shared"
)

// RouteStatus represents the status of a collection route
type RouteStatus string

const (
	RouteStatusActive   RouteStatus = "active"
	RouteStatusInactive RouteStatus = "inactive"
)

// Route is a named collection round: the set of meters a field reader
// visits together. Readings record the route they were collected on.
type Route struct {
	shared.BaseAggregateRoot
	Name        string
	Zone        string
	Description string
	Status      RouteStatus
}

// NewRoute creates a new active collection route
func NewRoute(name, zone, description string) (*Route, error) {
	if err := validateRouteName(name); err != nil {
		return nil, err
	}
	if len(zone) > 100 {
		return nil, shared.NewValidationError("route zone cannot exceed 100 characters")
	}

	route := &Route{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Zone:              zone,
		Description:       description,
		Status:            RouteStatusActive,
	}

	route.AddDomainEvent(NewRouteCreatedEvent(route))

	return route, nil
}

// Update updates the route's descriptive fields
func (r *Route) Update(name, zone, description string) error {
	if err := validateRouteName(name); err != nil {
		return err
	}
	if len(zone) > 100 {
		return shared.NewValidationError("route zone cannot exceed 100 characters")
	}

	r.Name = name
	r.Zone = zone
	r.Description = description
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// Deactivate takes the route out of the collection rotation
func (r *Route) Deactivate() error {
	if r.Status == RouteStatusInactive {
		return shared.NewValidationError("route is already inactive")
	}

	r.Status = RouteStatusInactive
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

// Activate puts the route back into the collection rotation
func (r *Route) Activate() error {
	if r.Status == RouteStatusActive {
		return shared.NewValidationError("route is already active")
	}

	r.Status = RouteStatusActive
	r.UpdatedAt = time.Now()
	r.IncrementVersion()

	return nil
}

func validateRouteName(name string) error {
	if name == "" {
		return shared.NewValidationError("route name cannot be empty")
	}
	if len(name) > 100 {
		return shared.NewValidationError("route name cannot exceed 100 characters")
	}
	return nil
}
