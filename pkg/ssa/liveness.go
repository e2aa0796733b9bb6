package ssa

// FindDeadVersions returns the versions that are never read by another
// version and are not the final version of their name in their phase.
// Synthetic versions are never reported.
func (e *Engine) FindDeadVersions() []Version {
	used := make(map[Ref]bool)
	for _, v := range e.versions {
		for _, d := range v.Dependencies {
			used[d] = true
		}
	}

	var dead []Version
	for _, v := range e.versions {
		if v.Synthetic() || used[v.Ref] || e.Final(v) {
			continue
		}
		dead = append(dead, v)
	}
	return dead
}

// DeadIDs returns the identifiers of FindDeadVersions.
func (e *Engine) DeadIDs() []string {
	dead := e.FindDeadVersions()
	ids := make([]string, len(dead))
	for i, v := range dead {
		ids[i] = v.ID()
	}
	return ids
}
