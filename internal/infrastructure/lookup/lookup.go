// Package lookup resolves customer, vehicle and employee summaries from the
// profile services, with a Redis pass-through cache in front of them.
package lookup

import (
	"context"

	"vehicle-service-scheduling/pkg/apperror"

	"github.com/google/uuid"
)

// Kind names the profile service an id belongs to.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindVehicle  Kind = "vehicle"
	KindEmployee Kind = "employee"
)

func (k Kind) IsValid() bool {
	return k == KindCustomer || k == KindVehicle || k == KindEmployee
}

// Summary is the minimal view of an external entity the scheduler needs.
// OwnerID is only set for vehicles and names the owning customer.
type Summary struct {
	ID          uuid.UUID  `json:"id"`
	Kind        Kind       `json:"kind"`
	DisplayName string     `json:"display_name"`
	Exists      bool       `json:"exists"`
	OwnerID     *uuid.UUID `json:"owner_id,omitempty"`
}

var (
	ErrEntityNotFound    = apperror.New("entity_not_found", "Referenced entity does not exist")
	ErrEntityUnavailable = apperror.New("entity_unavailable", "Profile service is temporarily unavailable, please retry")
)

// Fetcher returns a summary, ErrEntityNotFound or ErrEntityUnavailable.
// Any other failure is reported as ErrEntityUnavailable.
type Fetcher interface {
	Fetch(ctx context.Context, kind Kind, id uuid.UUID, authToken string) (*Summary, error)
}
