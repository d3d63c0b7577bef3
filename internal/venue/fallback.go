package venue

import (
	"strings"

	"sms-planner/internal/models"
)

// curated venue ideas per activity, used when the oracle is unavailable.
var curated = map[string][]models.Venue{
	"dinner": {
		{Name: "A neighborhood Italian trattoria", Description: "Pasta, shared plates and a relaxed room for groups."},
		{Name: "A family-style Thai restaurant", Description: "Big plates to pass around, easy on the budget."},
		{Name: "A local taqueria", Description: "Casual and quick, good for mixed appetites."},
		{Name: "A dim sum house", Description: "Lots of small dishes, great for a crowd."},
		{Name: "A ramen shop", Description: "Cozy bowls, short waits on weeknights."},
	},
	"drinks": {
		{Name: "A cocktail lounge", Description: "Quiet enough to talk, with bar snacks."},
		{Name: "A brewery taproom", Description: "Roomy tables and a rotating tap list."},
		{Name: "A wine bar", Description: "Small plates and by-the-glass pours."},
		{Name: "A rooftop bar", Description: "Views and fresh air when the weather's good."},
	},
	"coffee": {
		{Name: "An independent coffee shop", Description: "Good espresso and a few big tables."},
		{Name: "A bakery cafe", Description: "Pastries with your coffee."},
		{Name: "A tea house", Description: "Calm and unhurried."},
	},
	"brunch": {
		{Name: "A classic diner", Description: "Pancakes, eggs and bottomless coffee."},
		{Name: "A garden patio cafe", Description: "Outdoor seating and seasonal plates."},
		{Name: "A bakery brunch spot", Description: "Fresh bread, shakshuka, mimosas."},
	},
	"outdoors": {
		{Name: "A city park picnic", Description: "Bring blankets and snacks."},
		{Name: "A waterfront walk", Description: "Easy stroll with places to stop."},
		{Name: "A hiking trailhead", Description: "A short loop for all fitness levels."},
	},
	"default": {
		{Name: "A popular local restaurant", Description: "Reliable food with room for a group."},
		{Name: "A neighborhood bar", Description: "Low-key spot to catch up."},
		{Name: "A bowling alley", Description: "Lanes, pitchers and friendly competition."},
		{Name: "A board game cafe", Description: "Games and snacks for any group size."},
		{Name: "A city park", Description: "Free, open and flexible."},
	},
}

var categoryWords = map[string]string{
	"dinner": "dinner", "lunch": "dinner", "food": "dinner", "eat": "dinner", "restaurant": "dinner",
	"drinks": "drinks", "drink": "drinks", "bar": "drinks", "beer": "drinks", "cocktails": "drinks", "wine": "drinks", "happy": "drinks",
	"coffee": "coffee", "cafe": "coffee", "tea": "coffee",
	"brunch": "brunch", "breakfast": "brunch",
	"hike": "outdoors", "hiking": "outdoors", "picnic": "outdoors", "park": "outdoors", "walk": "outdoors", "beach": "outdoors",
}

func category(activity string) string {
	for _, w := range strings.Fields(strings.ToLower(activity)) {
		if c, ok := categoryWords[strings.Trim(w, ".,!?")]; ok {
			return c
		}
	}
	return "default"
}

// Fallback returns up to limit curated venues for the activity, skipping
// excluded names. When everything is excluded the list starts over.
func Fallback(activity, location string, exclusions []string, limit int) []models.Venue {
	list := curated[category(activity)]
	out := pick(list, exclusions, limit)
	if len(out) == 0 {
		out = pick(list, nil, limit)
	}
	for i := range out {
		if out[i].Link == "" {
			out[i].Link = MapsLink(out[i].Name, location)
		}
	}
	return out
}

func pick(list []models.Venue, exclusions []string, limit int) []models.Venue {
	var out []models.Venue
	for _, v := range list {
		if excluded(v.Name, exclusions) {
			continue
		}
		out = append(out, v)
		if len(out) == limit {
			break
		}
	}
	return out
}

func excluded(name string, exclusions []string) bool {
	for _, e := range exclusions {
		if strings.EqualFold(strings.TrimSpace(e), strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}
