package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hearthdesk/hearthd/internal/pidfile"
	"github.com/hearthdesk/hearthd/pkg/paths"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			root := paths.RootDir()
			running, pid, err := pidfile.IsRunning(paths.PidFilePath(root))
			if err != nil {
				return fmt.Errorf("error: %w", err)
			}

			if running {
				fmt.Printf("Running (PID: %d)\nSocket: %s\n", pid, paths.SocketPath(root))
			} else {
				fmt.Println("Stopped")
				os.Exit(1) // Return non-zero for stopped state (useful for scripts)
			}
			return nil
		},
	}
}
