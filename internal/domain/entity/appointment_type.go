package entity

// AppointmentType classifies the work booked for a vehicle.
type AppointmentType string

const (
	AppointmentTypeMaintenance AppointmentType = "maintenance"
	AppointmentTypeRepair      AppointmentType = "repair"
	AppointmentTypeInspection  AppointmentType = "inspection"
	AppointmentTypeDiagnostic  AppointmentType = "diagnostic"
	AppointmentTypeEmergency   AppointmentType = "emergency"
)

func (t AppointmentType) IsValid() bool {
	switch t {
	case AppointmentTypeMaintenance, AppointmentTypeRepair, AppointmentTypeInspection,
		AppointmentTypeDiagnostic, AppointmentTypeEmergency:
		return true
	}
	return false
}
