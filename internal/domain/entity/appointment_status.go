package entity

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending    AppointmentStatus = "pending"
	StatusConfirmed  AppointmentStatus = "confirmed"
	StatusInProgress AppointmentStatus = "in_progress"
	StatusCompleted  AppointmentStatus = "completed"
	StatusCancelled  AppointmentStatus = "cancelled"
	StatusNoShow     AppointmentStatus = "no_show"
)

// legalTransitions is the only place allowed status moves are defined.
var legalTransitions = map[AppointmentStatus][]AppointmentStatus{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusInProgress, StatusCancelled, StatusNoShow},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
	StatusNoShow:     {},
}

// AllStatuses lists every known status in lifecycle order.
func AllStatuses() []AppointmentStatus {
	return []AppointmentStatus{
		StatusPending,
		StatusConfirmed,
		StatusInProgress,
		StatusCompleted,
		StatusCancelled,
		StatusNoShow,
	}
}

// ActiveStatuses lists the non-terminal statuses, i.e. appointments that still occupy time.
func ActiveStatuses() []AppointmentStatus {
	return []AppointmentStatus{StatusPending, StatusConfirmed, StatusInProgress}
}

func (s AppointmentStatus) IsValid() bool {
	_, ok := legalTransitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible.
func (s AppointmentStatus) IsTerminal() bool {
	return s.IsValid() && len(legalTransitions[s]) == 0
}

// AllowedTargets returns a copy of the statuses reachable from s.
func (s AppointmentStatus) AllowedTargets() []AppointmentStatus {
	targets := legalTransitions[s]
	out := make([]AppointmentStatus, len(targets))
	copy(out, targets)
	return out
}

// CanTransitionTo reports whether moving from s to target is in the legal-transition table.
func (s AppointmentStatus) CanTransitionTo(target AppointmentStatus) bool {
	for _, allowed := range legalTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// CanReschedule reports whether the appointment may still move to another time.
func (s AppointmentStatus) CanReschedule() bool {
	return s == StatusPending || s == StatusConfirmed
}
