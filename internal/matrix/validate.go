package matrix

import (
	"fmt"
	"regexp"
)

// Validate checks structural invariants of the matrix definition.
// Expansion-level checks (duplicate names after axis expansion) live in Expand.
func (m *Matrix) Validate() error {
	if len(m.Stages) == 0 {
		return fmt.Errorf("matrix defines no stages")
	}
	seenStage := map[string]bool{}
	for _, s := range m.Stages {
		if s == "" {
			return fmt.Errorf("matrix contains an empty stage name")
		}
		if seenStage[s] {
			return fmt.Errorf("duplicate stage %q", s)
		}
		seenStage[s] = true
	}

	for i := range m.Jobs {
		if err := validateJob(&m.Jobs[i], m); err != nil {
			return fmt.Errorf("job %d: %w", i, err)
		}
	}
	for i := range m.Axes {
		if err := validateJobBody(&m.Axes[i].Template, m); err != nil {
			return fmt.Errorf("axis %d template: %w", i, err)
		}
		if m.Axes[i].NameFormat == "" {
			return fmt.Errorf("axis %d: name_format is required", i)
		}
	}
	return nil
}

func validateJob(j *Job, m *Matrix) error {
	if j.Name == "" {
		return fmt.Errorf("job has no name")
	}
	return validateJobBody(j, m)
}

func validateJobBody(j *Job, m *Matrix) error {
	if j.Stage == "" {
		return fmt.Errorf("job %q has no stage", j.Name)
	}
	if m.StageOrder(j.Stage) < 0 {
		return fmt.Errorf("job %q references unknown stage %q", j.Name, j.Stage)
	}
	if len(j.Script) == 0 {
		return fmt.Errorf("job %q has an empty script", j.Name)
	}
	if j.Gate != nil && j.Gate.Tag != "" {
		if _, err := regexp.Compile(j.Gate.Tag); err != nil {
			return fmt.Errorf("job %q has an invalid tag gate: %w", j.Name, err)
		}
	}
	return nil
}

// Matches reports whether the gate admits a run with the given tag and event.
// A tag gate requires a non-empty tag that matches; an event gate requires
// exact equality.
func (g *Gate) Matches(tag, event string) bool {
	if g == nil {
		return true
	}
	if g.Tag != "" {
		if tag == "" {
			return false
		}
		re, err := regexp.Compile(g.Tag)
		if err != nil || !re.MatchString(tag) {
			return false
		}
	}
	if g.Event != "" && g.Event != event {
		return false
	}
	return true
}
