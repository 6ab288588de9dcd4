package domain

// Metrics summarizes a user's diet adherence.
type Metrics struct {
	TotalMeals         int `json:"totalMeals"`
	TotalMealsOnDiet   int `json:"totalMealsOnDiet"`
	TotalMealsOffDiet  int `json:"totalMealsOffDiet"`
	BestOnDietSequence int `json:"bestOnDietSequence"`
}

// ComputeMetrics counts meals and finds the longest run of consecutive
// on-diet meals. The run is measured in the order given; meals are not
// re-sorted.
func ComputeMetrics(meals []Meal) Metrics {
	var m Metrics
	streak := 0
	for _, meal := range meals {
		m.TotalMeals++
		if !meal.IsOnDiet {
			m.TotalMealsOffDiet++
			streak = 0
			continue
		}
		m.TotalMealsOnDiet++
		streak++
		if streak > m.BestOnDietSequence {
			m.BestOnDietSequence = streak
		}
	}
	return m
}
