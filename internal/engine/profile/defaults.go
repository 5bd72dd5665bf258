package profile

// Built-in profile table. Values follow accepted cultivation ranges:
// vegetative stages run warm and humid with low VPD, flowering dries out
// and cools as harvest approaches, dry/cure want cold and stable.
// Night entries exist only for stages with a real dark period; the
// resolver falls back to the day profile for everything else.

var defaultProfiles = map[Key]map[Phase]Profile{
	KeySeedling: {
		PhaseDay: {
			Key: KeySeedling, Phase: PhaseDay,
			Temperature: Band{22, 26, 18, 28},
			Humidity:    Band{65, 80, 50, 90},
			VPD:         Band{0.4, 0.8, 0.3, 1.0},
			CO2:         Band{800, 1400, 400, 1500},
			DayHours:    18,
		},
	},
	KeyClone: {
		PhaseDay: {
			Key: KeyClone, Phase: PhaseDay,
			Temperature: Band{22, 26, 18, 28},
			Humidity:    Band{70, 85, 55, 95},
			VPD:         Band{0.3, 0.7, 0.2, 0.9},
			CO2:         Band{800, 1400, 400, 1500},
			DayHours:    18,
		},
	},
	KeyMother: {
		PhaseDay: {
			Key: KeyMother, Phase: PhaseDay,
			Temperature: Band{24, 26, 20, 29},
			Humidity:    Band{50, 65, 35, 70},
			VPD:         Band{0.9, 1.1, 0.8, 1.2},
			CO2:         Band{800, 1400, 400, 1500},
			DayHours:    18,
		},
	},
	KeyVegEarly: {
		PhaseDay: {
			Key: KeyVegEarly, Phase: PhaseDay,
			Temperature: Band{24, 26, 20, 29},
			Humidity:    Band{55, 70, 35, 80},
			VPD:         Band{0.5, 0.7, 0.4, 0.8},
			CO2:         Band{800, 1400, 400, 1500},
			DayHours:    18,
		},
		PhaseNight: {
			Key: KeyVegEarly, Phase: PhaseNight,
			Temperature: Band{20, 23, 15, 24},
			Humidity:    Band{55, 70, 35, 80},
			VPD:         Band{0.4, 0.8, 0.3, 1.0},
			CO2:         Band{800, 1400, 400, 1500},
			DayHours:    18,
		},
	},
	KeyVegLate: {
		PhaseDay: {
			Key: KeyVegLate, Phase: PhaseDay,
			Temperature: Band{24, 26, 20, 29},
			Humidity:    Band{50, 65, 35, 70},
			VPD:         Band{0.9, 1.1, 0.8, 1.2},
			CO2:         Band{800, 1400, 400, 1500},
			DayHours:    18,
		},
		PhaseNight: {
			Key: KeyVegLate, Phase: PhaseNight,
			Temperature: Band{20, 23, 15, 24},
			Humidity:    Band{50, 65, 35, 70},
			VPD:         Band{0.6, 1.0, 0.3, 1.1},
			CO2:         Band{800, 1400, 400, 1500},
			DayHours:    18,
		},
	},
	KeyFlowerEarly: {
		PhaseDay: {
			Key: KeyFlowerEarly, Phase: PhaseDay,
			Temperature: Band{24, 26, 20, 29},
			Humidity:    Band{50, 60, 45, 60},
			VPD:         Band{1.1, 1.4, 1.0, 1.5},
			CO2:         Band{800, 1400, 400, 1500},
			DayHours:    12,
		},
		PhaseNight: {
			Key: KeyFlowerEarly, Phase: PhaseNight,
			Temperature: Band{20, 23, 15, 24},
			Humidity:    Band{50, 60, 45, 60},
			VPD:         Band{0.8, 1.2, 0.5, 1.25},
			CO2:         Band{800, 1400, 400, 1500},
			DayHours:    12,
		},
	},
	KeyFlowerLate: {
		PhaseDay: {
			Key: KeyFlowerLate, Phase: PhaseDay,
			Temperature: Band{22, 26, 20, 28},
			Humidity:    Band{45, 55, 40, 60},
			VPD:         Band{1.3, 1.5, 1.2, 1.6},
			CO2:         Band{400, 800, 400, 1200},
			DayHours:    12,
		},
		PhaseNight: {
			Key: KeyFlowerLate, Phase: PhaseNight,
			Temperature: Band{20, 23, 15, 24},
			Humidity:    Band{45, 55, 40, 60},
			VPD:         Band{0.9, 1.2, 0.6, 1.3},
			CO2:         Band{400, 800, 400, 1200},
			DayHours:    12,
		},
	},
	KeyDry: {
		PhaseDay: {
			Key: KeyDry, Phase: PhaseDay,
			Temperature: Band{15, 21, 12, 24},
			Humidity:    Band{45, 55, 40, 60},
			VPD:         Band{0.8, 1.2, 0.5, 1.5},
			CO2:         Band{400, 1500, 300, 2000},
			DayHours:    0,
		},
	},
	KeyCure: {
		PhaseDay: {
			Key: KeyCure, Phase: PhaseDay,
			Temperature: Band{18, 21, 15, 24},
			Humidity:    Band{55, 60, 50, 65},
			VPD:         Band{0.8, 1.2, 0.5, 1.5},
			CO2:         Band{400, 1500, 300, 2000},
			DayHours:    0,
		},
	},
}

// allKeys lists every profile key for exhaustive validation.
var allKeys = []Key{
	KeySeedling, KeyClone, KeyMother,
	KeyVegEarly, KeyVegLate,
	KeyFlowerEarly, KeyFlowerLate,
	KeyDry, KeyCure,
}
