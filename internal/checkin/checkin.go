package checkin

import (
	"rollcall/internal/checkin/service"
)

// Service records one-time, geofence-validated check-ins.
type Service = service.Service

// NewService constructs the check-in service with required dependencies.
func NewService(checkins service.Store, events service.EventStore, registrations service.RegistrationStore, ids service.IDMinter, opts ...service.Option) *Service {
	return service.New(checkins, events, registrations, ids, opts...)
}
