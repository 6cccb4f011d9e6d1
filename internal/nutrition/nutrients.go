package nutrition

import "math"

// Nutrients holds one set of nutrient values, either per 100 g/ml of a
// catalog product or as absolute amounts after scaling. A nil field means
// the value is unknown, which is a distinct state from zero and must be
// preserved through scaling and aggregation.
type Nutrients struct {
	EnergyKcal   *float64 `gorm:"column:energy_kcal" json:"energy_kcal,omitempty"`
	Protein      *float64 `gorm:"column:protein" json:"protein,omitempty"`
	Carbs        *float64 `gorm:"column:carbs" json:"carbs,omitempty"`
	Sugars       *float64 `gorm:"column:sugars" json:"sugars,omitempty"`
	Fat          *float64 `gorm:"column:fat" json:"fat,omitempty"`
	SaturatedFat *float64 `gorm:"column:saturated_fat" json:"saturated_fat,omitempty"`
	Fiber        *float64 `gorm:"column:fiber" json:"fiber,omitempty"`
	Sodium       *float64 `gorm:"column:sodium" json:"sodium,omitempty"`
}

// Float returns a pointer to v. Convenience for building Nutrients literals.
func Float(v float64) *float64 {
	return &v
}

// IsEmpty reports whether every field is unknown.
func (n Nutrients) IsEmpty() bool {
	return n.EnergyKcal == nil && n.Protein == nil && n.Carbs == nil &&
		n.Sugars == nil && n.Fat == nil && n.SaturatedFat == nil &&
		n.Fiber == nil && n.Sodium == nil
}

// Scale computes absolute nutrient amounts for the given gram quantity from
// per-100 values. Unknown fields stay unknown, never zero. No rounding is
// applied here so repeated scaling and summing does not compound error.
func (n Nutrients) Scale(grams float64) Nutrients {
	factor := grams / 100
	return Nutrients{
		EnergyKcal:   scaleField(n.EnergyKcal, factor),
		Protein:      scaleField(n.Protein, factor),
		Carbs:        scaleField(n.Carbs, factor),
		Sugars:       scaleField(n.Sugars, factor),
		Fat:          scaleField(n.Fat, factor),
		SaturatedFat: scaleField(n.SaturatedFat, factor),
		Fiber:        scaleField(n.Fiber, factor),
		Sodium:       scaleField(n.Sodium, factor),
	}
}

func scaleField(per100 *float64, factor float64) *float64 {
	if per100 == nil {
		return nil
	}
	v := *per100 * factor
	return &v
}

// Add sums two nutrient sets field by field, best effort: a field unknown on
// one side contributes 0 to a sum that is otherwise known, and only a field
// unknown on both sides stays unknown.
func (n Nutrients) Add(other Nutrients) Nutrients {
	return Nutrients{
		EnergyKcal:   addField(n.EnergyKcal, other.EnergyKcal),
		Protein:      addField(n.Protein, other.Protein),
		Carbs:        addField(n.Carbs, other.Carbs),
		Sugars:       addField(n.Sugars, other.Sugars),
		Fat:          addField(n.Fat, other.Fat),
		SaturatedFat: addField(n.SaturatedFat, other.SaturatedFat),
		Fiber:        addField(n.Fiber, other.Fiber),
		Sodium:       addField(n.Sodium, other.Sodium),
	}
}

func addField(a, b *float64) *float64 {
	if a == nil && b == nil {
		return nil
	}
	sum := 0.0
	if a != nil {
		sum += *a
	}
	if b != nil {
		sum += *b
	}
	return &sum
}

// Round applies the presentation rounding policy: energy to the nearest
// kcal, everything else to two decimal places. Only call this at an output
// boundary, never between intermediate computations.
func (n Nutrients) Round() Nutrients {
	return Nutrients{
		EnergyKcal:   roundField(n.EnergyKcal, 0),
		Protein:      roundField(n.Protein, 2),
		Carbs:        roundField(n.Carbs, 2),
		Sugars:       roundField(n.Sugars, 2),
		Fat:          roundField(n.Fat, 2),
		SaturatedFat: roundField(n.SaturatedFat, 2),
		Fiber:        roundField(n.Fiber, 2),
		Sodium:       roundField(n.Sodium, 2),
	}
}

func roundField(v *float64, places int) *float64 {
	if v == nil {
		return nil
	}
	shift := math.Pow(10, float64(places))
	r := math.Round(*v*shift) / shift
	return &r
}
