package consolidate

import (
	"testing"

	"github.com/raphaelgruber/paperflow/internal/models"
)

func TestPlan(t *testing.T) {
	tests := []struct {
		name        string
		entities    []models.NamedEntity
		wantPrimary int
		wantRetire  []int
	}{
		{
			name: "highest document count wins",
			entities: []models.NamedEntity{
				{ID: 1, Name: "invoce", DocumentCount: 3},
				{ID: 2, Name: "invoice", DocumentCount: 40},
				{ID: 3, Name: "invoices", DocumentCount: 7},
			},
			wantPrimary: 2,
			wantRetire:  []int{1, 3},
		},
		{
			name: "tie broken by group order",
			entities: []models.NamedEntity{
				{ID: 5, Name: "receipt", DocumentCount: 10},
				{ID: 6, Name: "reciept", DocumentCount: 10},
			},
			wantPrimary: 5,
			wantRetire:  []int{6},
		},
		{
			name: "all zero counts keeps the seed",
			entities: []models.NamedEntity{
				{ID: 8, Name: "a"},
				{ID: 9, Name: "b"},
				{ID: 10, Name: "c"},
			},
			wantPrimary: 8,
			wantRetire:  []int{9, 10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Plan(models.SimilarityGroup{Kind: models.KindTag, Entities: tt.entities})

			if plan.Primary.ID != tt.wantPrimary {
				t.Errorf("primary = %d, want %d", plan.Primary.ID, tt.wantPrimary)
			}
			got := plan.RetireIDs()
			if len(got) != len(tt.wantRetire) {
				t.Fatalf("retire = %v, want %v", got, tt.wantRetire)
			}
			for i := range got {
				if got[i] != tt.wantRetire[i] {
					t.Errorf("retire = %v, want %v", got, tt.wantRetire)
				}
			}
			for _, id := range got {
				if id == plan.Primary.ID {
					t.Errorf("primary %d also scheduled for retirement", id)
				}
			}
		})
	}
}

func TestPlan_EmptyGroup(t *testing.T) {
	plan := Plan(models.SimilarityGroup{Kind: models.KindTag})
	if plan.Primary.ID != 0 || len(plan.Retire) != 0 {
		t.Errorf("got %+v, want zero plan", plan)
	}
}
