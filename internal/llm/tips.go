package llm

import "strings"

// UnknownCategory is returned by Tips for categories without tips
const UnknownCategory = "Category not found. Try: travel, energy, waste, or diet"

var tips = map[string]string{
	"travel": `🚗 Travel Emissions Tips:
- Use public transport: Reduces emissions by 40-50%
- Carpool: Share rides to cut emissions in half
- Electric vehicles: 50-70% lower emissions than gas cars
- Bike/Walk: Zero emissions for short distances
- Fly less: One flight = weeks of car emissions`,

	"energy": `⚡ Energy Efficiency Tips:
- Switch to LED bulbs: 75% less energy than incandescent
- Unplug devices: Saves 5-10% of electricity bill
- Use renewable energy: Solar/wind reduces emissions by 100%
- Improve insulation: Reduces heating needs by 30%
- Smart thermostat: Saves 10-15% on heating/cooling`,

	"waste": `🗑️ Waste Reduction Tips:
- Recycle properly: Reduces landfill emissions by 50%
- Compost food waste: Prevents methane emissions
- Buy less: Reduce consumption by 30% = 30% less emissions
- Choose reusable: Bags, bottles, containers
- Repair instead of replace: Extends product life`,

	"diet": `🍽️ Diet & Food Tips:
- Reduce meat: Beef has 10x emissions of vegetables
- Go vegetarian 1 day/week: Saves 1 ton CO2/year
- Buy local: Reduces transport emissions by 80%
- Minimize food waste: 8% of global emissions
- Choose seasonal produce: Lower transportation needs`,
}

// Tips returns carbon reduction tips for a category (case-insensitive)
func Tips(category string) string {
	if t, ok := tips[strings.ToLower(category)]; ok {
		return t
	}
	return UnknownCategory
}

// TipCategories lists the categories Tips knows about
func TipCategories() []string {
	return []string{"travel", "energy", "waste", "diet"}
}
