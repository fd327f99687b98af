package utils

import "strings"

var vehicleTypes = map[string]bool{
	"car":        true,
	"suv":        true,
	"motorcycle": true,
	"van":        true,
}

// NormalizeVehicleType lowercases and validates a vehicle type. An empty
// input defaults to car; unknown types are rejected.
func NormalizeVehicleType(name string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "car", true
	}
	if !vehicleTypes[normalized] {
		return "", false
	}
	return normalized, true
}

// NormalizePlate uppercases a plate and strips internal whitespace, so
// "mh 12 ab 1234" and "MH12AB1234" refer to the same vehicle.
func NormalizePlate(plate string) string {
	return strings.ToUpper(strings.Join(strings.Fields(plate), ""))
}
