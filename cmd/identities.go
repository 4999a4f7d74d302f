package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/names"
	"github.com/spf13/cobra"
)

var identitiesCmd = &cobra.Command{
	Use:   "identities [query]",
	Short: "List enrolled identities",
	Long: `Lists every enrolled identity. The optional query filters by name,
ignoring case and diacritics ("jose" matches "José").`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIdentities,
}

func init() {
	rootCmd.AddCommand(identitiesCmd)
}

func runIdentities(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	identities, err := store.ListIdentities(ctx)
	if err != nil {
		return fmt.Errorf("failed to list identities: %w", err)
	}

	query := ""
	if len(args) > 0 {
		query = args[0]
	}

	shown := 0
	fmt.Printf("\n%-8s %-32s %s\n", "ID", "NAME", "ENROLLED")
	for _, identity := range identities {
		if !names.Matches(identity.Name, query) {
			continue
		}
		fmt.Printf("%-8d %-32s %s\n", identity.ID, identity.Name, identity.CreatedAt.Format("2006-01-02"))
		shown++
	}
	fmt.Printf("\nTotal: %d identities\n", shown)
	return nil
}
