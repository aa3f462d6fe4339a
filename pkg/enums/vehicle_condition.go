package enums

import "fmt"

// VehicleCondition reflects the physical state of a vehicle.
type VehicleCondition string

const (
	VehicleConditionGood     VehicleCondition = "good"
	VehicleConditionInRepair VehicleCondition = "in_repair"
	VehicleConditionDamaged  VehicleCondition = "damaged"
)

var validVehicleConditions = []VehicleCondition{
	VehicleConditionGood,
	VehicleConditionInRepair,
	VehicleConditionDamaged,
}

// String implements fmt.Stringer.
func (v VehicleCondition) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VehicleCondition.
func (v VehicleCondition) IsValid() bool {
	for _, candidate := range validVehicleConditions {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVehicleCondition converts raw input into a VehicleCondition.
func ParseVehicleCondition(value string) (VehicleCondition, error) {
	for _, candidate := range validVehicleConditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vehicle condition %q", value)
}
