package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hearthdesk/hearthd/pkg/client"
)

// newCallCmd exposes the raw RPC surface for scripting and debugging,
// e.g. `hearthd call backend set_pull_paused '{"paused":true}'`.
func newCallCmd() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "call <namespace> <command> [args-json]",
		Short: "Send a raw RPC request to the running daemon",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reqArgs map[string]interface{}
			if len(args) == 3 {
				if err := json.Unmarshal([]byte(args[2]), &reqArgs); err != nil {
					return fmt.Errorf("invalid args JSON: %w", err)
				}
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			data, err := client.New().Call(ctx, args[0], args[1], reqArgs)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "Request timeout")
	return cmd
}
