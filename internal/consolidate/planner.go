package consolidate

import "github.com/raphaelgruber/paperflow/internal/models"

// Plan decides which member of a similarity group survives a merge. The
// entity referenced by the most documents wins; on a tie the earliest group
// member wins, so repeated runs over the same data pick the same primary.
func Plan(group models.SimilarityGroup) models.MergePlan {
	plan := models.MergePlan{Kind: group.Kind}
	if len(group.Entities) == 0 {
		return plan
	}

	primary := 0
	for i, e := range group.Entities {
		if e.DocumentCount > group.Entities[primary].DocumentCount {
			primary = i
		}
	}

	plan.Primary = group.Entities[primary]
	for i, e := range group.Entities {
		if i != primary {
			plan.Retire = append(plan.Retire, e)
		}
	}
	return plan
}
