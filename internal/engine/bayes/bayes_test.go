package bayes

import (
	"math"
	"strings"
	"testing"

	"github.com/tentwatch/growmond/internal/engine/profile"
)

func vegEarlyDay() profile.Profile {
	return profile.NewResolver().Resolve(profile.StageVeg, 0, profile.PhaseDay)
}

func TestNewEstimator_PriorValidation(t *testing.T) {
	tests := []struct {
		name  string
		prior float64
		valid bool
	}{
		{"zero", 0, false},
		{"one", 1, false},
		{"negative", -0.1, false},
		{"above_one", 1.5, false},
		{"valid", 0.15, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewEstimator(ConditionStress, tt.prior, StressSources())
			if tt.valid && err != nil {
				t.Errorf("prior %v should be accepted: %v", tt.prior, err)
			}
			if !tt.valid && err == nil {
				t.Errorf("prior %v should be rejected", tt.prior)
			}
		})
	}
}

func TestEstimate_NoReadingsIsInsufficient(t *testing.T) {
	e, err := NewEstimator(ConditionStress, DefaultPriorStress, StressSources())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	est := e.Estimate(Snapshot{}, vegEarlyDay())
	if !est.Insufficient {
		t.Error("empty snapshot should yield insufficient estimate")
	}
	if len(est.Contributing) != 0 {
		t.Errorf("insufficient estimate should have no contributors, got %v", est.Contributing)
	}
}

func TestEstimate_IdealReadingsHoldPrior(t *testing.T) {
	e, err := NewEstimator(ConditionStress, DefaultPriorStress, StressSources())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	// Room sitting at its ideal point: readings are available but none
	// deviates, so the posterior stays at the prior.
	s := Snapshot{
		Temperature: Avail(25),
		Humidity:    Avail(60),
	}
	est := e.Estimate(s, vegEarlyDay())
	if est.Insufficient {
		t.Fatal("available readings should not be insufficient")
	}
	if math.Abs(est.Posterior-DefaultPriorStress) > 1e-9 {
		t.Errorf("posterior = %v, want prior %v", est.Posterior, DefaultPriorStress)
	}
	if len(est.Contributing) != 0 {
		t.Errorf("ideal readings should not contribute, got %v", est.Contributing)
	}
}

func TestEstimate_WarmTempRaisesStress(t *testing.T) {
	e, err := NewEstimator(ConditionStress, DefaultPriorStress, StressSources())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	// 30C is above the veg tolerance ceiling but below the high-heat
	// cutoff; humidity is fine. Only temperature should contribute.
	s := Snapshot{
		Temperature: Avail(30),
		Humidity:    Avail(60),
	}
	est := e.Estimate(s, vegEarlyDay())
	if est.Insufficient {
		t.Fatal("should not be insufficient")
	}
	if est.Posterior <= est.Prior {
		t.Errorf("warm reading should raise posterior above prior: %v <= %v", est.Posterior, est.Prior)
	}
	if len(est.Contributing) != 1 || est.Contributing[0] != profile.VarTemperature {
		t.Errorf("contributing = %v, want [temperature]", est.Contributing)
	}
	if len(est.Reasons) != 1 || !strings.Contains(est.Reasons[0], "temp warm") {
		t.Errorf("reasons = %v, want temp warm finding", est.Reasons)
	}
}

func TestEstimate_ExtremeHeatDominatesButNeverSaturates(t *testing.T) {
	e, err := NewEstimator(ConditionStress, DefaultPriorStress, StressSources())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	s := Snapshot{Temperature: Avail(35)}
	est := e.Estimate(s, vegEarlyDay())
	if est.Posterior <= 0.7 {
		t.Errorf("extreme heat posterior = %v, want strongly elevated", est.Posterior)
	}
	if est.Posterior >= 1 {
		t.Errorf("posterior must never saturate to 1, got %v", est.Posterior)
	}
}

func TestEstimate_ColdCascade(t *testing.T) {
	e, err := NewEstimator(ConditionStress, DefaultPriorStress, StressSources())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	cold := e.Estimate(Snapshot{Temperature: Avail(17)}, vegEarlyDay())
	extreme := e.Estimate(Snapshot{Temperature: Avail(12)}, vegEarlyDay())
	if extreme.Posterior <= cold.Posterior {
		t.Errorf("extreme cold (%v) should outrank cold (%v)", extreme.Posterior, cold.Posterior)
	}
}

func TestEstimate_DesiccationFiresOnDryRoomWithDehumidifier(t *testing.T) {
	e, err := NewEstimator(ConditionStress, DefaultPriorStress, StressSources())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	s := Snapshot{
		Humidity:       Avail(30),
		DehumidifierOn: Switch{On: true, OK: true},
	}
	est := e.Estimate(s, vegEarlyDay())
	found := false
	for _, r := range est.Reasons {
		if strings.Contains(r, "desiccation") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected desiccation finding, reasons = %v", est.Reasons)
	}
	if est.Posterior <= 0.5 {
		t.Errorf("dry room with running dehumidifier should be high stress, got %v", est.Posterior)
	}
}

func TestEstimate_RisingTrendRaisesStress(t *testing.T) {
	e, err := NewEstimator(ConditionStress, DefaultPriorStress, StressSources())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	// Readings sit at the ideal point, only the movement is adverse.
	base := Snapshot{
		Temperature: Avail(25),
		Humidity:    Avail(60),
	}

	slow := base
	slow.TemperatureTrend = Trend{Direction: TrendRising, OK: true}
	est := e.Estimate(slow, vegEarlyDay())
	if est.Posterior <= est.Prior {
		t.Errorf("rising temperature should raise posterior above prior: %v <= %v", est.Posterior, est.Prior)
	}
	if len(est.Contributing) != 1 || est.Contributing[0] != profile.VarTemperature {
		t.Errorf("contributing = %v, want [temperature]", est.Contributing)
	}
	if len(est.Reasons) != 1 || est.Reasons[0] != "temperature rising" {
		t.Errorf("reasons = %v, want temperature rising", est.Reasons)
	}

	fast := base
	fast.TemperatureTrend = Trend{Direction: TrendRising, Fast: true, OK: true}
	fastEst := e.Estimate(fast, vegEarlyDay())
	if fastEst.Posterior <= est.Posterior {
		t.Errorf("fast rise (%v) should outrank slow rise (%v)", fastEst.Posterior, est.Posterior)
	}
	if len(fastEst.Reasons) != 1 || !strings.Contains(fastEst.Reasons[0], "rising fast") {
		t.Errorf("reasons = %v, want fast rise finding", fastEst.Reasons)
	}
}

func TestEstimate_MoldCondensationPrecursors(t *testing.T) {
	e, err := NewEstimator(ConditionMoldRisk, DefaultPriorMoldRisk, MoldSources())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}
	p := vegEarlyDay()

	// Climbing humidity is a mold precursor in every stage, even when
	// the level itself is still unremarkable.
	rising := Snapshot{Humidity: Avail(55)}
	rising.HumidityTrend = Trend{Direction: TrendRising, OK: true}
	est := e.Estimate(rising, p)
	if est.Insufficient {
		t.Fatal("humidity reading available, should not be insufficient")
	}
	if est.Posterior <= est.Prior {
		t.Errorf("rising humidity should raise mold risk: %v <= %v", est.Posterior, est.Prior)
	}
	if len(est.Reasons) != 1 || est.Reasons[0] != "humidity rising" {
		t.Errorf("reasons = %v, want humidity rising", est.Reasons)
	}

	falling := Snapshot{VPD: Avail(1.0)}
	falling.VPDTrend = Trend{Direction: TrendFalling, OK: true}
	est = e.Estimate(falling, p)
	if est.Posterior <= est.Prior {
		t.Errorf("falling vpd should raise mold risk: %v <= %v", est.Posterior, est.Prior)
	}
	if len(est.Reasons) != 1 || est.Reasons[0] != "vpd falling" {
		t.Errorf("reasons = %v, want vpd falling", est.Reasons)
	}
}

func TestEstimate_MoldGatedOnLateFlower(t *testing.T) {
	e, err := NewEstimator(ConditionMoldRisk, DefaultPriorMoldRisk, MoldSources())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	humid := Snapshot{
		Temperature: Avail(20),
		Humidity:    Avail(65),
		FanOn:       Switch{On: false, OK: true},
	}

	r := profile.NewResolver()
	veg := e.Estimate(humid, r.Resolve(profile.StageVeg, 0, profile.PhaseDay))
	late := e.Estimate(humid, r.Resolve(profile.StageFlower, 50, profile.PhaseDay))

	if veg.Insufficient || late.Insufficient {
		t.Fatal("humidity reading available, should not be insufficient")
	}
	if math.Abs(veg.Posterior-veg.Prior) > 1e-9 {
		t.Errorf("outside late flower mold posterior should hold at prior, got %v", veg.Posterior)
	}
	if late.Posterior <= 0.5 {
		t.Errorf("humid late flower with dead air should be high mold risk, got %v", late.Posterior)
	}
}

func TestEstimate_MoldNightWeighsHeavier(t *testing.T) {
	e, err := NewEstimator(ConditionMoldRisk, DefaultPriorMoldRisk, MoldSources())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	humid := Snapshot{Humidity: Avail(65)}
	r := profile.NewResolver()
	day := e.Estimate(humid, r.Resolve(profile.StageFlower, 50, profile.PhaseDay))
	night := e.Estimate(humid, r.Resolve(profile.StageFlower, 50, profile.PhaseNight))
	if night.Posterior <= day.Posterior {
		t.Errorf("night humidity (%v) should outrank day humidity (%v)", night.Posterior, day.Posterior)
	}
}

func TestEstimate_OptimalGradesByDeviation(t *testing.T) {
	e, err := NewEstimator(ConditionOptimal, DefaultPriorOptimal, OptimalSources())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	p := vegEarlyDay()
	perfect := e.Estimate(Snapshot{Temperature: Avail(25)}, p)
	good := e.Estimate(Snapshot{Temperature: Avail(27)}, p)
	adverse := e.Estimate(Snapshot{Temperature: Avail(33)}, p)

	if !(perfect.Posterior > good.Posterior && good.Posterior > adverse.Posterior) {
		t.Errorf("optimal grading broken: perfect=%v good=%v adverse=%v",
			perfect.Posterior, good.Posterior, adverse.Posterior)
	}
	if perfect.Posterior <= perfect.Prior {
		t.Errorf("ideal reading should raise optimal above prior, got %v", perfect.Posterior)
	}
	if adverse.Posterior >= adverse.Prior {
		t.Errorf("out-of-range reading should drop optimal below prior, got %v", adverse.Posterior)
	}
}

func TestEstimate_DryingWindow(t *testing.T) {
	e, err := NewEstimator(ConditionDrying, DefaultPriorDrying, DryingSources())
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	p := profile.NewResolver().Resolve(profile.StageDry, 0, profile.PhaseDay)
	inWindow := e.Estimate(Snapshot{Temperature: Avail(18), Humidity: Avail(50)}, p)
	tooWarm := e.Estimate(Snapshot{Temperature: Avail(26), Humidity: Avail(50)}, p)

	if inWindow.Posterior <= 0.8 {
		t.Errorf("in-window drying posterior = %v, want high", inWindow.Posterior)
	}
	if tooWarm.Posterior >= inWindow.Posterior {
		t.Errorf("out-of-window reading should lower posterior: %v >= %v", tooWarm.Posterior, inWindow.Posterior)
	}
}

func TestClampRatio(t *testing.T) {
	e, err := NewEstimator(ConditionStress, 0.5, nil)
	if err != nil {
		t.Fatalf("NewEstimator: %v", err)
	}

	tests := []struct {
		name     string
		pair     Pair
		expected float64
	}{
		{"zero_denominator", Pair{0.5, 0}, DefaultMaxRatio},
		{"above_max", Pair{1, 0.001}, DefaultMaxRatio},
		{"below_min", Pair{0.001, 1}, DefaultMinRatio},
		{"in_range", Pair{0.8, 0.2}, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.clampRatio(tt.pair); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("clampRatio(%v) = %v, want %v", tt.pair, got, tt.expected)
			}
		})
	}
}
