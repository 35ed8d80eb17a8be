package models

// DefaultSites is the fixed reference table loaded at start-up. Dwarka and
// Ambaji share a base footfall and therefore share a forecast model.
func DefaultSites() []Site {
	return []Site{
		{ID: "somnath", Name: "Somnath", Lat: 20.888, Lon: 70.401, BaseFootfall: 50000},
		{ID: "dwarka", Name: "Dwarka", Lat: 22.238, Lon: 68.968, BaseFootfall: 25000},
		{ID: "ambaji", Name: "Ambaji", Lat: 24.333, Lon: 72.850, BaseFootfall: 25000},
		{ID: "pavagadh", Name: "Pavagadh", Lat: 22.461, Lon: 73.512, BaseFootfall: 6000},
	}
}
