package registration

import (
	"rollcall/internal/registration/service"
)

// Service drives the registration approval workflow.
type Service = service.Service

// NewService constructs the registration service with required dependencies.
func NewService(registrations service.Store, events service.EventStore, ledger service.Ledger, ids service.IDMinter, opts ...service.Option) *Service {
	return service.New(registrations, events, ledger, ids, opts...)
}
