package engines

type Beverage struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Category   string  `json:"category"`
	CaffeineMg float64 `json:"caffeineMg"`
	Serving    string  `json:"serving"`
}

var beverages = []Beverage{
	{ID: "coffee_regular", Name: "Brewed coffee", Category: "coffee", CaffeineMg: 100, Serving: "240ml"},
	{ID: "coffee_espresso", Name: "Espresso", Category: "coffee", CaffeineMg: 63, Serving: "30ml"},
	{ID: "coffee_americano", Name: "Americano", Category: "coffee", CaffeineMg: 150, Serving: "360ml"},
	{ID: "coffee_latte", Name: "Latte", Category: "coffee", CaffeineMg: 63, Serving: "360ml"},
	{ID: "tea_black", Name: "Black tea", Category: "tea", CaffeineMg: 47, Serving: "240ml"},
	{ID: "tea_green", Name: "Green tea", Category: "tea", CaffeineMg: 28, Serving: "240ml"},
	{ID: "energy_drink", Name: "Energy drink", Category: "supplement", CaffeineMg: 80, Serving: "250ml"},
	{ID: "cola", Name: "Cola", Category: "soft_drink", CaffeineMg: 34, Serving: "355ml"},
	{ID: "chocolate_dark", Name: "Dark chocolate", Category: "food", CaffeineMg: 12, Serving: "28g"},
	{ID: "pre_workout", Name: "Pre-workout supplement", Category: "supplement", CaffeineMg: 200, Serving: "1 scoop"},
}

// Beverages returns a copy of the caffeine content table.
func Beverages() []Beverage {
	out := make([]Beverage, len(beverages))
	copy(out, beverages)
	return out
}
