package planner

// Output is the result of one planning run. All per-step slices have
// horizon length. TotalCost is the plain sum of CostPerStep; the terminal
// buffer penalty used during optimization is reported separately.
type Output struct {
	Status          Status    `json:"status"`
	Offsets         []int     `json:"offsets"`
	Buffer          []float64 `json:"buffer_kwh"`
	SupplyTemp      []float64 `json:"supply_temp"`
	CostPerStep     []float64 `json:"cost_per_step"`
	TotalCost       float64   `json:"total_cost"`
	TerminalPenalty float64   `json:"terminal_penalty"`
	BaselineCost    float64   `json:"baseline_cost"`
	SavingsPerStep  []float64 `json:"savings_per_step"`
	TotalSavings    float64   `json:"total_savings"`
	Warnings        []string  `json:"warnings,omitempty"`
}

// CurrentOffset returns the offset to apply now, or the fallback value
// when the plan is empty.
func (o *Output) CurrentOffset(fallback int) int {
	if len(o.Offsets) == 0 {
		return fallback
	}
	return o.Offsets[0]
}
