package footprint

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// ErrInvalidForm is returned for form values that cannot be encoded
var ErrInvalidForm = errors.New("invalid form data")

// Number is a form field that may arrive as a JSON number or as a numeric
// string. Null and the empty string leave it unset.
type Number struct {
	Value float64
	Set   bool
}

// N returns a set Number
func N(v float64) Number {
	return Number{Value: v, Set: true}
}

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = Number{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*n = Number{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %q is not a number", ErrInvalidForm, s)
		}
		*n = N(v)
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %s is not a number", ErrInvalidForm, string(data))
	}
	*n = N(v)
	return nil
}

// Choice is a categorical form field. A missing key or null leaves it
// unset; any string, including "", is taken as given.
type Choice struct {
	Value string
	Set   bool
}

// C returns a set Choice
func C(s string) Choice {
	return Choice{Value: s, Set: true}
}

// UnmarshalJSON implements json.Unmarshaler
func (c *Choice) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = Choice{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: %s is not a string", ErrInvalidForm, string(data))
	}
	*c = C(s)
	return nil
}

// MarshalJSON implements json.Marshaler
func (c Choice) MarshalJSON() ([]byte, error) {
	if !c.Set {
		return []byte("null"), nil
	}
	return json.Marshal(c.Value)
}

// Or returns the value, or def when unset
func (c Choice) Or(def string) string {
	if !c.Set {
		return def
	}
	return c.Value
}

// MarshalJSON implements json.Marshaler
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Set {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Or returns the value, or def when unset
func (n Number) Or(def float64) float64 {
	if !n.Set {
		return def
	}
	return n.Value
}

// Int truncates the value toward zero, or returns def when unset
func (n Number) Int(def int) float64 {
	if !n.Set {
		return float64(def)
	}
	return math.Trunc(n.Value)
}

// FormData is the calculator form as posted by the web and mobile clients
type FormData struct {
	Height           Number   `json:"height"`
	Weight           Number   `json:"weight"`
	Sex              string   `json:"sex"`
	Shower           string   `json:"shower"`
	Social           string   `json:"social"`
	GroceryBill      Number   `json:"groceryBill"`
	AirTravel        string   `json:"airTravel"`
	VehicleKm        Number   `json:"vehicleKm"`
	WasteBag         string   `json:"wasteBag"`
	WasteCount       Number   `json:"wasteCount"`
	DailyTvPc        Number   `json:"dailyTvPc"`
	ClothesMonthly   Number   `json:"clothesMonthly"`
	InternetDaily    Number   `json:"internetDaily"`
	EnergyEfficiency string   `json:"energyEfficiency"`
	Diet             Choice   `json:"diet"`
	HeatingEnergy    Choice   `json:"heatingEnergy"`
	Transport        Choice   `json:"transport"`
	VehicleType      Choice   `json:"vehicleType"`
	Recycle          []string `json:"recycle"`
	Cooking          []string `json:"cooking"`
}

var (
	showerLevels = map[string]float64{
		"less frequently": 0, "daily": 1, "twice a day": 2, "more frequently": 3,
	}
	socialLevels = map[string]float64{
		"never": 0, "sometimes": 1, "often": 2,
	}
	airTravelLevels = map[string]float64{
		"never": 0, "rarely": 1, "frequently": 2, "very frequently": 3,
	}
	wasteBagLevels = map[string]float64{
		"small": 0, "medium": 1, "large": 2, "extra large": 3,
	}
	efficiencyLevels = map[string]float64{
		"No": 0, "Sometimes": 1, "Yes": 2,
	}
)

// level looks value up in levels, falling back to the level of def
func level(levels map[string]float64, value, def string) float64 {
	if v, ok := levels[value]; ok {
		return v
	}
	return levels[def]
}

// BodyType buckets BMI into underweight (0), normal (1), overweight (2)
// and obese (3).
func BodyType(heightCm, weightKg float64) float64 {
	h := heightCm / 100
	bmi := weightKg / (h * h)
	switch {
	case bmi < 18.5:
		return 0
	case bmi < 25:
		return 1
	case bmi < 30:
		return 2
	default:
		return 3
	}
}

// Encode builds the feature vector for a form. Categorical answers that name
// no known column are dropped.
func Encode(form FormData) (Vector, error) {
	height := form.Height.Or(160)
	weight := form.Weight.Or(75)
	if height <= 0 {
		return nil, fmt.Errorf("%w: height must be positive", ErrInvalidForm)
	}
	if weight < 0 {
		return nil, fmt.Errorf("%w: weight must not be negative", ErrInvalidForm)
	}

	v := NewVector()

	sex := 0.0
	if form.Sex == "male" {
		sex = 1
	}

	v.Set("Body Type", BodyType(height, weight))
	v.Set("Sex", sex)
	v.Set("How Often Shower", level(showerLevels, form.Shower, "daily"))
	v.Set("Social Activity", level(socialLevels, form.Social, "never"))
	v.Set("Monthly Grocery Bill", form.GroceryBill.Int(0))
	v.Set("Frequency of Traveling by Air", level(airTravelLevels, form.AirTravel, "never"))
	v.Set("Vehicle Monthly Distance Km", form.VehicleKm.Int(0))
	v.Set("Waste Bag Size", level(wasteBagLevels, form.WasteBag, "small"))
	v.Set("Waste Bag Weekly Count", form.WasteCount.Int(0))
	v.Set("How Long TV PC Daily Hour", form.DailyTvPc.Int(0))
	v.Set("How Many New Clothes Monthly", form.ClothesMonthly.Int(0))
	v.Set("How Long Internet Daily Hour", form.InternetDaily.Int(0))
	v.Set("Energy efficiency", level(efficiencyLevels, form.EnergyEfficiency, "No"))

	v.Set("Diet_"+form.Diet.Or("omnivore"), 1)
	v.Set("Heating Energy Source_"+form.HeatingEnergy.Or("natural gas"), 1)
	v.Set("Transport_"+form.Transport.Or("public"), 1)
	v.Set("Vehicle Type_"+form.VehicleType.Or("None"), 1)

	for _, material := range form.Recycle {
		v.Set("Do You Recyle_"+material, 1)
	}
	for _, method := range form.Cooking {
		v.Set("Cooking_with_"+method, 1)
	}

	return v, nil
}
