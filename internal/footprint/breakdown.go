package footprint

// Category is one of the breakdown groups
type Category string

const (
	Travel Category = "Travel"
	Energy Category = "Energy"
	Waste  Category = "Waste"
	Diet   Category = "Diet"
)

// Categories lists the breakdown groups in response order
var Categories = []Category{Travel, Energy, Waste, Diet}

var (
	transportColumns = []string{
		"Transport_private", "Transport_public", "Transport_walk/bicycle",
	}
	heatingColumns = []string{
		"Heating Energy Source_coal", "Heating Energy Source_electricity",
		"Heating Energy Source_natural gas", "Heating Energy Source_wood",
	}
)

// categoryColumns are the columns kept when predicting a category. Transport
// and heating also count towards Diet, as in the trained model's breakdown.
var categoryColumns = map[Category][]string{
	Travel: concat(
		[]string{"Frequency of Traveling by Air", "Vehicle Monthly Distance Km"},
		transportColumns,
		[]string{
			"Vehicle Type_None", "Vehicle Type_diesel", "Vehicle Type_electric",
			"Vehicle Type_hybrid", "Vehicle Type_lpg", "Vehicle Type_petrol",
		},
	),
	Energy: concat(
		heatingColumns,
		[]string{
			"How Often Shower", "How Long TV PC Daily Hour", "How Long Internet Daily Hour",
			"Cooking_with_stove", "Cooking_with_oven", "Cooking_with_microwave",
			"Cooking_with_grill", "Cooking_with_airfryer", "Energy efficiency",
		},
	),
	Waste: {
		"Do You Recyle_Paper", "Do You Recyle_Plastic", "Do You Recyle_Glass",
		"Do You Recyle_Metal", "How Many New Clothes Monthly", "Waste Bag Size",
		"Waste Bag Weekly Count", "Social Activity",
	},
	Diet: concat(
		[]string{
			"Diet_omnivore", "Diet_pescatarian", "Diet_vegan", "Diet_vegetarian",
			"Monthly Grocery Bill",
		},
		transportColumns,
		heatingColumns,
	),
}

func concat(groups ...[]string) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g...)
	}
	return out
}

// CategoryColumns returns the columns that make up a category
func CategoryColumns(c Category) []string {
	return append([]string(nil), categoryColumns[c]...)
}

// Breakdown holds the per-category predictions
type Breakdown struct {
	Travel int `json:"Travel"`
	Energy int `json:"Energy"`
	Waste  int `json:"Waste"`
	Diet   int `json:"Diet"`
}

func (b *Breakdown) set(c Category, v int) {
	switch c {
	case Travel:
		b.Travel = v
	case Energy:
		b.Energy = v
	case Waste:
		b.Waste = v
	case Diet:
		b.Diet = v
	}
}

// Get returns the value for a category
func (b Breakdown) Get(c Category) int {
	switch c {
	case Travel:
		return b.Travel
	case Energy:
		return b.Energy
	case Waste:
		return b.Waste
	case Diet:
		return b.Diet
	}
	return 0
}
