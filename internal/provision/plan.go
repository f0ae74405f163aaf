package provision

import "github.com/tranqh91/nimbus/pkg/types"

// Plan diffs the current instance set against the desired name set.
// Instances whose names match are kept untouched, which is what makes a
// re-apply of an unchanged deployment a no-op.
func Plan(current []types.Instance, desired []string) (toCreate []string, toDelete []types.Instance) {
	have := make(map[string]bool, len(current))
	for _, inst := range current {
		have[inst.Name] = true
	}

	want := make(map[string]bool, len(desired))
	for _, name := range desired {
		want[name] = true
		if !have[name] {
			toCreate = append(toCreate, name)
		}
	}

	for _, inst := range current {
		if !want[inst.Name] {
			toDelete = append(toDelete, inst)
		}
	}

	return toCreate, toDelete
}
