package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/database"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Show recorded attendance sessions",
	Long: `Lists the most recent attendance sessions, newest first.
Use --identity to show the full history of one person.`,
	RunE: runAttendance,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)

	attendanceCmd.Flags().Int("limit", database.DefaultRecentLimit, "Number of sessions to show")
	attendanceCmd.Flags().Int64("identity", 0, "Show sessions of one identity only")
}

func runAttendance(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	ctx := context.Background()
	loc := cfg.Attendance.Location()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	var sessions []database.AttendanceSession
	if id := mustGetInt64(cmd, "identity"); id > 0 {
		identity, err := store.GetIdentity(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to get identity: %w", err)
		}
		if identity == nil {
			return fmt.Errorf("identity %d not found", id)
		}
		fmt.Printf("\nAttendance of %s (ID %d)\n", identity.Name, identity.ID)
		sessions, err = store.ListForIdentity(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list attendance: %w", err)
		}
	} else {
		sessions, err = store.ListRecent(ctx, mustGetInt(cmd, "limit"))
		if err != nil {
			return fmt.Errorf("failed to list attendance: %w", err)
		}
	}

	if len(sessions) == 0 {
		fmt.Println("No attendance recorded yet")
		return nil
	}

	fmt.Printf("\n%-24s %-10s %-8s %-8s\n", "NAME", "DATE", "IN", "OUT")
	for _, s := range sessions {
		out := "-"
		if s.TimeOut != nil {
			out = s.TimeOut.In(loc).Format(time.TimeOnly)
		}
		fmt.Printf("%-24s %-10s %-8s %-8s\n", s.Name, s.Date, s.TimeIn.In(loc).Format(time.TimeOnly), out)
	}
	fmt.Printf("\nTotal: %d sessions\n", len(sessions))
	return nil
}
