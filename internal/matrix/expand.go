package matrix

import (
	"fmt"
	"sort"
	"strings"
)

// Expand resolves axis blocks into concrete jobs and returns all lanes,
// ordered by stage then name. Global env is merged under per-job env.
func (m *Matrix) Expand() ([]Job, error) {
	jobs := make([]Job, 0, len(m.Jobs))
	jobs = append(jobs, m.Jobs...)

	for i := range m.Axes {
		expanded, err := m.Axes[i].expand()
		if err != nil {
			return nil, fmt.Errorf("axis %d: %w", i, err)
		}
		jobs = append(jobs, expanded...)
	}

	seen := map[string]bool{}
	for i := range jobs {
		if seen[jobs[i].Name] {
			return nil, fmt.Errorf("duplicate job name %q after expansion", jobs[i].Name)
		}
		seen[jobs[i].Name] = true
		jobs[i].Env = mergeEnv(m.Env, jobs[i].Env)
	}

	sort.SliceStable(jobs, func(a, b int) bool {
		sa, sb := m.StageOrder(jobs[a].Stage), m.StageOrder(jobs[b].Stage)
		if sa != sb {
			return sa < sb
		}
		return jobs[a].Name < jobs[b].Name
	})
	return jobs, nil
}

func (a *Axis) expand() ([]Job, error) {
	if a.NameFormat == "" {
		return nil, fmt.Errorf("axis requires a name_format")
	}
	oses := orDefault(a.OS, a.Template.OS)
	interpreters := orDefault(a.Interpreter, a.Template.Interpreter)
	arches := orDefault(a.Arch, a.Template.Arch)

	var jobs []Job
	for _, osName := range oses {
		for _, interp := range interpreters {
			for _, arch := range arches {
				if a.excluded(osName, interp, arch) {
					continue
				}
				job := a.Template
				job.OS = osName
				job.Interpreter = interp
				job.Arch = arch
				job.Name = formatName(a.NameFormat, osName, interp, arch)
				job.Env = cloneEnv(a.Template.Env)
				jobs = append(jobs, job)
			}
		}
	}
	return jobs, nil
}

func (a *Axis) excluded(osName, interp, arch string) bool {
	for _, ex := range a.Exclude {
		match := true
		if v, ok := ex["os"]; ok && v != osName {
			match = false
		}
		if v, ok := ex["interpreter"]; ok && v != interp {
			match = false
		}
		if v, ok := ex["arch"]; ok && v != arch {
			match = false
		}
		if match {
			return true
		}
	}
	return false
}

func formatName(format, osName, interp, arch string) string {
	r := strings.NewReplacer(
		"{os}", osName,
		"{interpreter}", interp,
		"{arch}", arch,
	)
	return r.Replace(format)
}

// orDefault returns the axis values, or the single template value when the
// axis does not vary that dimension.
func orDefault(values []string, single string) []string {
	if len(values) > 0 {
		return values
	}
	return []string{single}
}

func mergeEnv(global, local map[string]string) map[string]string {
	if global == nil && local == nil {
		return nil
	}
	merged := make(map[string]string, len(global)+len(local))
	for k, v := range global {
		merged[k] = v
	}
	for k, v := range local {
		merged[k] = v
	}
	return merged
}

func cloneEnv(env map[string]string) map[string]string {
	if env == nil {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}
