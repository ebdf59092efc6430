package entity

import "time"

// SlotFilter is a domain-level filter for listing slots.
// Used by repository layer to avoid coupling with delivery DTOs.
type SlotFilter struct {
	From     time.Time // inclusive, compared against starts_at
	To       time.Time // exclusive, compared against starts_at
	After    time.Time // keyset cursor: only slots starting strictly after this
	OnlyOpen bool      // available and not full
	Limit    int
}
