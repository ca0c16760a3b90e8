package config

// DefaultSettings returns the built-in work-hour configuration: a focused
// morning, an admin hour after lunch, and more focused time until five.
// Weekends have no declared capacity until the user adds custom hours.
func DefaultSettings() *Settings {
	weekday := DayHours{
		Blocks: []BlockConfig{
			{ID: "morning", Start: "09:00", End: "12:00", Kind: "single", Category: "focused"},
			{ID: "lunch", Start: "12:00", End: "13:00", Kind: "system"},
			{ID: "admin", Start: "13:00", End: "14:00", Kind: "single", Category: "admin"},
			{ID: "afternoon", Start: "14:00", End: "17:00", Kind: "single", Category: "focused"},
		},
	}

	return &Settings{
		DefaultWorkHours: weekday,
		CustomWorkHours: map[string]DayHours{
			"saturday": {},
			"sunday":   {},
		},
		DefaultMode: "realistic",
		HorizonDays: 30,
	}
}
