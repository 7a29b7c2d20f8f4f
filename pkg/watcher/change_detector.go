package watcher

// ReloadPlan describes which data sources need to be re-read
type ReloadPlan struct {
	Results      bool
	Components   bool
	ChangedFiles []string
}

// Empty reports whether nothing needs reloading
func (p *ReloadPlan) Empty() bool {
	return !p.Results && !p.Components
}

// PlanReload merges debounced events into a single reload plan
func PlanReload(events ...ChangeEvent) *ReloadPlan {
	plan := &ReloadPlan{}
	for _, event := range events {
		switch event.Type {
		case ChangeTypeResults:
			// Report previews and analytics read the results file
			plan.Results = true
		case ChangeTypeComponents:
			plan.Components = true
		}
		plan.ChangedFiles = append(plan.ChangedFiles, event.Paths...)
	}
	return plan
}
