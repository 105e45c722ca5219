package event

import (
	"rollcall/internal/event/service"
)

// Service drives event lifecycle transitions.
type Service = service.Service

// Ledger exposes atomic capacity reserve/release.
type Ledger = service.Ledger

// NewService constructs the event service with required dependencies.
func NewService(events service.Store, ids service.IDMinter, opts ...service.Option) *Service {
	return service.New(events, ids, opts...)
}

// NewLedger constructs the capacity ledger over the same store.
func NewLedger(events service.Store, opts ...service.LedgerOption) *Ledger {
	return service.NewLedger(events, opts...)
}
