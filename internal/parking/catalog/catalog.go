// Package catalog holds the fixed table of parking locations served by the
// service. The table is read once when a session store is built.
package catalog

import "parkly/pkg/model"

var seed = []model.Location{
	{
		Name:        "Koramangala",
		BookedCount: 5,
		VacantCount: 10,
		Coordinates: &model.Coordinates{Latitude: 12.9352, Longitude: 77.6245},
		LiveUpdate:  "Weekend rush near Forum Mall, expect slower entry",
		Places:      []string{"Forum Mall", "Sony World Junction", "5th Block"},
	},
	{
		Name:        "Indiranagar",
		BookedCount: 8,
		VacantCount: 12,
		Coordinates: &model.Coordinates{Latitude: 12.9784, Longitude: 77.6408},
		LiveUpdate:  "100 Feet Road lanes open",
		Places:      []string{"100 Feet Road", "12th Main", "Metro Station"},
	},
	{
		Name:        "Whitefield",
		BookedCount: 12,
		VacantCount: 18,
		Coordinates: &model.Coordinates{Latitude: 12.9698, Longitude: 77.7500},
		LiveUpdate:  "Tech park shift change at 6 PM",
		Places:      []string{"ITPL", "Phoenix Marketcity", "Hope Farm"},
	},
	{
		Name:        "MG Road",
		BookedCount: 10,
		VacantCount: 5,
		Coordinates: &model.Coordinates{Latitude: 12.9756, Longitude: 77.6050},
		LiveUpdate:  "Limited slots, consider Trinity metro parking",
		Places:      []string{"Brigade Road", "Church Street", "Trinity Circle"},
	},
	{
		Name:        "HSR Layout",
		BookedCount: 4,
		VacantCount: 16,
		Coordinates: &model.Coordinates{Latitude: 12.9116, Longitude: 77.6389},
		Places:      []string{"Sector 1", "Sector 7", "27th Main"},
	},
	{
		Name:        "Jayanagar",
		BookedCount: 6,
		VacantCount: 9,
		Coordinates: &model.Coordinates{Latitude: 12.9250, Longitude: 77.5938},
		LiveUpdate:  "4th Block shopping complex busy after 5 PM",
		Places:      []string{"4th Block", "Cool Joint", "South End Circle"},
	},
}

// Locations returns a fresh copy of the catalog in display order. Callers
// may modify the result without affecting other sessions.
func Locations() []model.Location {
	out := make([]model.Location, len(seed))
	for i, loc := range seed {
		out[i] = loc
		if loc.Coordinates != nil {
			c := *loc.Coordinates
			out[i].Coordinates = &c
		}
		out[i].Places = append([]string(nil), loc.Places...)
	}
	return out
}
