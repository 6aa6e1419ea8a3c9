package footprint

// Columns is the model's feature order. The "Recyle" spelling matches the
// column names the model was trained on.
var Columns = []string{
	"Body Type",
	"Sex",
	"How Often Shower",
	"Social Activity",
	"Monthly Grocery Bill",
	"Frequency of Traveling by Air",
	"Vehicle Monthly Distance Km",
	"Waste Bag Size",
	"Waste Bag Weekly Count",
	"How Long TV PC Daily Hour",
	"How Many New Clothes Monthly",
	"How Long Internet Daily Hour",
	"Energy efficiency",
	"Do You Recyle_Paper",
	"Do You Recyle_Plastic",
	"Do You Recyle_Glass",
	"Do You Recyle_Metal",
	"Cooking_with_stove",
	"Cooking_with_oven",
	"Cooking_with_microwave",
	"Cooking_with_grill",
	"Cooking_with_airfryer",
	"Diet_omnivore",
	"Diet_pescatarian",
	"Diet_vegan",
	"Diet_vegetarian",
	"Heating Energy Source_coal",
	"Heating Energy Source_electricity",
	"Heating Energy Source_natural gas",
	"Heating Energy Source_wood",
	"Transport_private",
	"Transport_public",
	"Transport_walk/bicycle",
	"Vehicle Type_None",
	"Vehicle Type_diesel",
	"Vehicle Type_electric",
	"Vehicle Type_hybrid",
	"Vehicle Type_lpg",
	"Vehicle Type_petrol",
}

var columnIndex = func() map[string]int {
	idx := make(map[string]int, len(Columns))
	for i, c := range Columns {
		idx[c] = i
	}
	return idx
}()

// ColumnIndex returns the position of a named column
func ColumnIndex(name string) (int, bool) {
	i, ok := columnIndex[name]
	return i, ok
}

// Vector is a feature vector in Columns order
type Vector []float64

// NewVector returns an all-zero feature vector
func NewVector() Vector {
	return make(Vector, len(Columns))
}

// Set assigns a named column. Unknown names are ignored and reported as false.
func (v Vector) Set(name string, value float64) bool {
	i, ok := columnIndex[name]
	if !ok {
		return false
	}
	v[i] = value
	return true
}

// Get returns a named column, or 0 for unknown names
func (v Vector) Get(name string) float64 {
	if i, ok := columnIndex[name]; ok {
		return v[i]
	}
	return 0
}

// Mask returns a copy of v with every column not in keep set to zero
func (v Vector) Mask(keep []string) Vector {
	out := NewVector()
	for _, name := range keep {
		if i, ok := columnIndex[name]; ok {
			out[i] = v[i]
		}
	}
	return out
}
