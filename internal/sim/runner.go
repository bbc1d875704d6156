package sim

import (
	"fmt" // Narrative formatting

	"github.com/sirupsen/logrus" // Run progress logging

	"coop_economy/internal/metrics" // Economic metrics
	"coop_economy/internal/randx"   // Seeded randomness
	"coop_economy/internal/stablecoin"
)

// RunParams drives a full comparison run between the traditional economy
// (scenario A) and the cooperative economy (scenario B).
type RunParams struct {
	Description             string  `json:"description"`                // Label for logs
	NumMembers              int     `json:"num_members"`                // Community size
	SimulationWeeks         int     `json:"simulation_weeks"`           // Weeks to simulate
	InitialWealthMeanLog    float64 `json:"initial_wealth_mean_log"`    // Log-space wealth mean
	InitialWealthSigmaLog   float64 `json:"initial_wealth_sigma_log"`   // Log-space wealth sigma
	WeeklyFoodBudgetAvg     float64 `json:"weekly_food_budget_avg"`     // Mean weekly food budget
	WeeklyFoodBudgetStd     float64 `json:"weekly_food_budget_std"`     // Budget std deviation
	MinWeeklyBudget         float64 `json:"min_weekly_budget"`          // Budget floor
	WeeklyIncomeAvg         float64 `json:"weekly_income_avg"`          // Mean weekly income
	WeeklyIncomeStd         float64 `json:"weekly_income_std"`          // Income std deviation
	MinWeeklyIncome         float64 `json:"min_weekly_income"`          // Income floor
	GroupBuySavingsPct      float64 `json:"group_buy_savings_pct"`      // Bulk-buy discount
	LocalProductionSavePct  float64 `json:"local_production_save_pct"`  // Local production discount
	PercentSpendInternalAvg float64 `json:"percent_spend_internal_avg"` // Mean internal-spend propensity
	PercentSpendInternalStd float64 `json:"percent_spend_internal_std"` // Propensity std deviation
	WeeklyCoopFee           float64 `json:"weekly_coop_fee"`            // Weekly cooperative fee
	Seed                    int64   `json:"seed"`                       // Randomness seed
}

// DefaultRunParams mirrors the historical default parameter set.
func DefaultRunParams() RunParams {
	return RunParams{
		Description:             "Default Params",
		NumMembers:              50,
		SimulationWeeks:         52 * 3,
		InitialWealthMeanLog:    6.9077552789821, // ln(1000)
		InitialWealthSigmaLog:   0.6,
		WeeklyFoodBudgetAvg:     75.0,
		WeeklyFoodBudgetStd:     15.0,
		MinWeeklyBudget:         20.0,
		WeeklyIncomeAvg:         150.0,
		WeeklyIncomeStd:         40.0,
		MinWeeklyIncome:         0.0,
		GroupBuySavingsPct:      0.15,
		LocalProductionSavePct:  0.25,
		PercentSpendInternalAvg: 0.60,
		PercentSpendInternalStd: 0.20,
		WeeklyCoopFee:           1.0,
		Seed:                    1,
	}
}

// Member is one simulated community member.
type Member struct {
	ID                string  `json:"id"`                 // Address M_<n>
	WeeklyIncome      float64 `json:"weekly_income"`      // Fixed income draw
	WeeklyFoodBudget  float64 `json:"weekly_food_budget"` // Fixed budget draw
	SpendInternal     float64 `json:"spend_internal"`     // Propensity to spend internally
	WealthTraditional float64 `json:"wealth_traditional"` // Scenario A wealth
	WealthCooperative float64 `json:"wealth_cooperative"` // Scenario B wealth
	StablecoinBalance float64 `json:"stablecoin_balance"` // Final FoodUSD balance
	TokenBalance      float64 `json:"token_balance"`      // Final GroToken balance
}

// WeekMetrics is one week's metric row across both scenarios.
type WeekMetrics struct {
	Week              int       `json:"week"`
	Year              int       `json:"year"`
	Quarter           int       `json:"quarter"`
	AvgWealthA        float64   `json:"avg_wealth_a"`
	AvgWealthB        float64   `json:"avg_wealth_b"`
	MedianWealthA     float64   `json:"median_wealth_a"`
	MedianWealthB     float64   `json:"median_wealth_b"`
	TotalWealthA      float64   `json:"total_wealth_a"`
	TotalWealthB      float64   `json:"total_wealth_b"`
	GiniA             float64   `json:"gini_a"`
	GiniB             float64   `json:"gini_b"`
	PovertyRateA      float64   `json:"poverty_rate_a"`
	PovertyRateB      float64   `json:"poverty_rate_b"`
	WealthGapB        float64   `json:"wealth_gap_b"`
	Bottom20PctShareB float64   `json:"bottom_20_pct_share_b"`
	QuintilesB        []float64 `json:"quintiles_b"`
	GiniBTrend        float64   `json:"gini_b_trend"`
	AvgWealthBTrend   float64   `json:"avg_wealth_b_trend"`
}

// KeyEvent flags a notable shift in the weekly metrics.
type KeyEvent struct {
	Week        int    `json:"week"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Phase is one third of the run, characterized by its wealth growth.
type Phase struct {
	Period          string `json:"period"`
	Type            string `json:"type"`
	Characteristics string `json:"characteristics"`
}

// Summary is the narrative wrap-up of a run.
type Summary struct {
	Title      string   `json:"title"`
	Overview   string   `json:"overview"`
	Phases     []Phase  `json:"phases"`
	KeyEvents  []string `json:"key_events"`
	Conclusion string   `json:"conclusion"`
}

// RunResult is the full output document of a comparison run.
type RunResult struct {
	History      []WeekMetrics      `json:"history"`
	FinalMembers []Member           `json:"final_members"`
	KeyEvents    []KeyEvent         `json:"key_events"`
	Summary      Summary            `json:"summary"`
	Stats        ComprehensiveStats `json:"stats"`
	Comparison   EconomyComparison  `json:"comparison"`
}

// Run executes a full comparison simulation: scenario A members hold plain
// wealth and spend their budget; scenario B members move through the
// cooperative ledgers week by week.
func Run(params RunParams, cfgs Configs) (*RunResult, error) {
	logrus.WithFields(logrus.Fields{
		"description": params.Description,
		"members":     params.NumMembers,
		"weeks":       params.SimulationWeeks,
	}).Info("starting simulation run")

	rng := randx.New(params.Seed)
	co := New(cfgs, rng)

	members := make([]*Member, params.NumMembers)
	addresses := make([]string, params.NumMembers)
	wealth := make([]float64, params.NumMembers)
	for i := range members {
		initial := randx.LogNormal(rng, params.InitialWealthMeanLog, params.InitialWealthSigmaLog)
		members[i] = &Member{
			ID:                fmt.Sprintf("M_%d", i),
			WeeklyIncome:      max(params.MinWeeklyIncome, randx.Normal(rng, params.WeeklyIncomeAvg, params.WeeklyIncomeStd)),
			WeeklyFoodBudget:  max(params.MinWeeklyBudget, randx.Normal(rng, params.WeeklyFoodBudgetAvg, params.WeeklyFoodBudgetStd)),
			SpendInternal:     randx.Clamp(randx.Normal(rng, params.PercentSpendInternalAvg, params.PercentSpendInternalStd), 0, 1),
			WealthTraditional: max(0, initial),
		}
		addresses[i] = members[i].ID
		wealth[i] = max(0, initial)
	}
	if err := co.Initialize(addresses, wealth); err != nil {
		return nil, err
	}

	avgInternalSavings := (params.GroupBuySavingsPct + params.LocalProductionSavePct) / 2
	povertyLine := params.WeeklyFoodBudgetAvg * 4
	result := &RunResult{}
	var prev *WeekMetrics
	var traditionalTotal float64

	for week := 1; week <= params.SimulationWeeks; week++ {
		budgets := make(map[string]float64, len(members))
		wealthA := make([]float64, len(members))
		for i, m := range members {
			// Scenario A: income in, budgeted spending out, floored at zero.
			m.WealthTraditional += m.WeeklyIncome
			spendA := min(m.WeeklyFoodBudget, m.WealthTraditional)
			m.WealthTraditional = max(0, m.WealthTraditional-spendA)
			wealthA[i] = m.WealthTraditional
			traditionalTotal += spendA

			// Scenario B: the internal share of the budget is discounted.
			internal := m.WeeklyFoodBudget * m.SpendInternal
			external := m.WeeklyFoodBudget - internal
			effectiveCost := internal*(1-avgInternalSavings) + external
			adjustMemberBalance(co.GetModels().Stablecoin, m.ID, m.WeeklyIncome, effectiveCost, params.WeeklyCoopFee)
			budgets[m.ID] = min(effectiveCost, co.GetModels().Stablecoin.BalanceOf(m.ID))
		}
		if _, err := co.ProcessWeek(week, budgets); err != nil {
			return nil, err
		}

		wealthB := make([]float64, len(members))
		for i, m := range members {
			m.StablecoinBalance = co.GetModels().Stablecoin.BalanceOf(m.ID)
			m.TokenBalance = co.GetModels().Tokens.BalanceOf(m.ID)
			m.WealthCooperative = m.StablecoinBalance + m.TokenBalance*co.GetModels().Tokens.TokenValue()
			wealthB[i] = m.WealthCooperative
		}

		row := weekRow(week, wealthA, wealthB, povertyLine, prev)
		result.History = append(result.History, row)
		if prev != nil {
			if row.GiniB < prev.GiniB*0.95 {
				result.KeyEvents = append(result.KeyEvents, KeyEvent{
					Week: week, Type: "equality_improvement",
					Description: fmt.Sprintf("Significant reduction in wealth inequality (Gini B < %.3f)", prev.GiniB*0.95),
				})
			}
			if row.PovertyRateB < prev.PovertyRateB*0.9 {
				result.KeyEvents = append(result.KeyEvents, KeyEvent{
					Week: week, Type: "poverty_reduction",
					Description: fmt.Sprintf("Significant poverty reduction (Rate B < %.1f%%)", prev.PovertyRateB*0.9*100),
				})
			}
		}
		prev = &result.History[len(result.History)-1]
	}

	for _, m := range members {
		result.FinalMembers = append(result.FinalMembers, *m)
	}
	result.Stats = co.GetComprehensiveStats()
	result.Comparison = co.CompareEconomies(traditionalTotal)
	result.Summary = summarize(result.History, result.KeyEvents)
	logrus.WithField("weeks", len(result.History)).Info("simulation run finished")
	return result, nil
}

// adjustMemberBalance applies the member's weekly net cash flow outside the
// budgeted spend: income surplus is funded, shortfalls and the coop fee are
// burned down to a zero floor.
func adjustMemberBalance(stable *stablecoin.Ledger, addr string, income, effectiveCost, fee float64) {
	net := income - effectiveCost - fee
	if net > 0 {
		stable.FundAccount(addr, randx.Round2(net))
		return
	}
	deficit := min(-net, stable.BalanceOf(addr))
	if deficit > 0 {
		stable.Burn(addr, randx.Round2(deficit))
	}
}

// weekRow computes one week's metric row.
func weekRow(week int, wealthA, wealthB []float64, povertyLine float64, prev *WeekMetrics) WeekMetrics {
	row := WeekMetrics{
		Week:              week,
		Year:              (week-1)/52 + 1,
		Quarter:           ((week - 1) % 52 / 13) + 1,
		AvgWealthA:        metrics.Mean(wealthA),
		AvgWealthB:        metrics.Mean(wealthB),
		MedianWealthA:     metrics.Median(wealthA),
		MedianWealthB:     metrics.Median(wealthB),
		TotalWealthA:      metrics.Sum(wealthA),
		TotalWealthB:      metrics.Sum(wealthB),
		GiniA:             metrics.Gini(wealthA),
		GiniB:             metrics.Gini(wealthB),
		PovertyRateA:      metrics.PovertyRate(wealthA, povertyLine),
		PovertyRateB:      metrics.PovertyRate(wealthB, povertyLine),
		WealthGapB:        metrics.WealthGap(wealthB),
		Bottom20PctShareB: metrics.Bottom20Share(wealthB),
		QuintilesB:        metrics.Quintiles(wealthB),
	}
	if prev != nil {
		row.GiniBTrend = metrics.Trend(prev.GiniB, row.GiniB)
		row.AvgWealthBTrend = metrics.Trend(prev.AvgWealthB, row.AvgWealthB)
	}
	return row
}

// summarize builds the narrative wrap-up of a finished run.
func summarize(history []WeekMetrics, events []KeyEvent) Summary {
	if len(history) == 0 {
		return Summary{Title: "Error", Overview: "No simulation history data available."}
	}
	first, last := history[0], history[len(history)-1]
	var wealthChange float64
	if first.TotalWealthB != 0 {
		wealthChange = (last.TotalWealthB - first.TotalWealthB) / first.TotalWealthB
	}
	inequalityChange := last.GiniB - first.GiniB
	direction := "grew"
	if wealthChange < 0 {
		direction = "declined"
	}
	summary := Summary{
		Title: "Economic System Evolution Analysis",
		Overview: fmt.Sprintf(
			"Over %d weeks, the cooperative economy's total wealth %s by %.1f%% while the Gini coefficient moved from %.3f to %.3f.",
			len(history), direction, abs(wealthChange)*100, first.GiniB, last.GiniB),
		Phases:     analyzePhases(history),
		Conclusion: conclusion(history, wealthChange, inequalityChange),
	}
	for _, e := range events {
		summary.KeyEvents = append(summary.KeyEvents, e.Description)
	}
	if len(summary.KeyEvents) == 0 {
		summary.KeyEvents = []string{"No significant key events detected."}
	}
	return summary
}

// analyzePhases splits the run into thirds and characterizes each by its
// cooperative wealth growth.
func analyzePhases(history []WeekMetrics) []Phase {
	if len(history) < 9 {
		return nil
	}
	third := len(history) / 3
	bounds := [][2]int{{0, third}, {third, 2 * third}, {2 * third, len(history)}}
	names := []string{"Initial Phase", "Development Phase", "Maturity Phase"}
	var phases []Phase
	var prevGrowth float64
	for i, b := range bounds {
		start, end := history[b[0]], history[b[1]-1]
		var growth float64
		if start.TotalWealthB > 1e-6 {
			growth = (end.TotalWealthB - start.TotalWealthB) / start.TotalWealthB
		}
		var character string
		switch i {
		case 0:
			switch {
			case abs(growth) < 0.05:
				character = "Adaptation"
			case growth > 0.1:
				character = "Rapid Growth"
			default:
				character = "Steady Growth"
			}
		case 1:
			switch {
			case growth > prevGrowth:
				character = "Acceleration"
			case growth < prevGrowth:
				character = "Consolidation"
			default:
				character = "Stabilization"
			}
		default:
			switch {
			case abs(growth) < 0.03:
				character = "Maturity"
			case growth > 0:
				character = "Continued Growth"
			default:
				character = "Contraction"
			}
		}
		phases = append(phases, Phase{
			Period:          fmt.Sprintf("Weeks %d-%d", b[0]+1, b[1]),
			Type:            names[i],
			Characteristics: fmt.Sprintf("%s (Wealth Change: %+.1f%%)", character, growth*100),
		})
		prevGrowth = growth
	}
	return phases
}

// conclusion renders the final assessment sentence block.
func conclusion(history []WeekMetrics, wealthChange, inequalityChange float64) string {
	last := history[len(history)-1]
	outcome := "challenging"
	if wealthChange > 0.1 {
		outcome = "successful"
	} else if wealthChange >= 0 {
		outcome = "moderately successful"
	}
	equity := "equity neutral"
	switch {
	case inequalityChange < -0.02:
		equity = "more equitable"
	case inequalityChange < 0:
		equity = "slightly more equitable"
	case inequalityChange > 0.02:
		equity = "less equitable"
	}
	wealthDiff := last.TotalWealthB - last.TotalWealthA
	comparison := fmt.Sprintf("the cooperative economy ended with $%.2f more total wealth than the traditional one", wealthDiff)
	if wealthDiff < 0 {
		comparison = fmt.Sprintf("the cooperative economy ended with $%.2f less total wealth than the traditional one", -wealthDiff)
	}
	return fmt.Sprintf(
		"The simulation suggests a %s outcome for the cooperative model over %d weeks. The community became %s, and %s.",
		outcome, len(history), equity, comparison)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
