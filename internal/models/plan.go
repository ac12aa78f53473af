package models

import "strings"

// DefaultPlanDays applies when a stored plan no longer matches any offer.
const DefaultPlanDays = 30

type Plan struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PriceINR int    `json:"price_inr"`
	Days     int    `json:"days"`
}

var Plans = []Plan{
	{ID: "half-year", Name: "₹1000 for 6 months (With Advance Classes)", PriceINR: 1000, Days: 182},
	{ID: "yearly", Name: "₹2000 for 1 year (With Advance Classes)", PriceINR: 2000, Days: 365},
	{ID: "monthly", Name: "₹200 for 30 days (Subjects Homework Only)", PriceINR: 200, Days: 30},
}

// LookupPlan matches a plan by id, full name or leading words of the name.
func LookupPlan(s string) (Plan, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Plan{}, false
	}

	for _, p := range Plans {
		if strings.EqualFold(p.ID, s) || p.Name == s || strings.HasPrefix(p.Name, s+" ") {
			return p, true
		}
	}

	return Plan{}, false
}

func PlanDays(s string) int {
	if p, ok := LookupPlan(s); ok {
		return p.Days
	}
	return DefaultPlanDays
}
