package domain

import "time"

var ecoTips = []string{
	"Use public transport to reduce your carbon footprint!",
	"Try eating more plant-based meals this week.",
	"Unplug electronics when not in use to save energy.",
	"Consider carpooling or biking for short trips.",
	"Reduce, reuse, and recycle to minimize waste.",
}

// TipOfDay rotates through the eco tips by calendar day, so the same day
// always surfaces the same tip.
func TipOfDay(day time.Time) string {
	return ecoTips[day.UTC().YearDay()%len(ecoTips)]
}
