package domain

// DriverProfile carries the display fields for a driver candidate.
type DriverProfile struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Photo string `json:"photo,omitempty"`
}

// VehicleInfo describes the vehicle a candidate would arrive in.
type VehicleInfo struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Color string `json:"color"`
	Plate string `json:"plate"`
}

// DriverCandidate is a read-only snapshot of a driver offered for
// selection. It is displayed and discarded, never persisted locally.
type DriverCandidate struct {
	ID      string        `json:"id"`
	Profile DriverProfile `json:"profile"`
	Vehicle VehicleInfo   `json:"vehicle"`
	Rating  float64       `json:"rating"`
}
