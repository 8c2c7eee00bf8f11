package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/paperflow/internal/models"
)

var entitiesKind string

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List tags, correspondents or document types with document counts",
	Long: `List the named entities of one kind, most-used first.

Examples:
  paperflow entities
  paperflow entities --kind correspondent`,
	RunE: runEntities,
}

func init() {
	entitiesCmd.Flags().StringVarP(&entitiesKind, "kind", "k", "tag", "entity kind: tag, correspondent or document_type")
}

func runEntities(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	kind, err := models.ParseEntityKind(entitiesKind)
	if err != nil {
		return err
	}

	entities, err := docStore.ListEntities(ctx, kind)
	if err != nil {
		return fmt.Errorf("list %s entities: %w", kind, err)
	}

	if len(entities) == 0 {
		fmt.Printf("No %s entities found.\n", kind)
		return nil
	}

	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].DocumentCount > entities[j].DocumentCount
	})

	fmt.Printf("%s entities (%d):\n\n", kind, len(entities))
	for _, e := range entities {
		fmt.Printf("- %s (%d docs)\n", e.Name, e.DocumentCount)
		if verbose {
			fmt.Printf("  id: %d\n", e.ID)
		}
	}
	return nil
}
