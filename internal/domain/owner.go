package domain

import "time"

// OwnerKind is the counterparty type a balance is cached on.
type OwnerKind string

const (
	OwnerKindCustomer OwnerKind = "customer"
	OwnerKindSupplier OwnerKind = "supplier"
	OwnerKindAccount  OwnerKind = "account"
)

// Owner is a customer, supplier or account carrying a cached balance snapshot.
// Version is the optimistic concurrency token, bumped on every balance write.
type Owner struct {
	UpdatedAt time.Time
	ID        string
	Name      string
	Kind      OwnerKind
	Balance   AccountBalanceSnapshot
	Version   int64
}

// OwnerFilter narrows the owners a batch reconciliation visits.
// AfterID is the keyset pagination cursor.
type OwnerFilter struct {
	UpdatedBefore *time.Time
	AfterID       string
	Kinds         []OwnerKind
	IDs           []string
}
