package models

import "fmt"

// Coordinates represents a geographical point defined by its longitude and latitude.
type Coordinates struct {
	Longitude float64 `json:"longitude"` // Longitude of the geographical point.
	Latitude  float64 `json:"latitude"`  // Latitude of the geographical point.
}

// String formats the point the way search results print it: four decimals, latitude first.
func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f, %.4f", c.Latitude, c.Longitude)
}
