package verify

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/netrixframework/interop/audit"
	"github.com/netrixframework/interop/config"
	"github.com/spf13/cobra"
)

// ErrBrokenChain is returned when the audit log fails verification
var ErrBrokenChain = errors.New("audit chain broken")

func VerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify [audit_file]",
		Short: "Verify the hash chain of a file audit log",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if len(args) == 1 {
				path = args[0]
			} else {
				conf, err := config.Load(config.ConfigPath)
				if err != nil {
					return fmt.Errorf("failed to parse config: %s", err)
				}
				path = conf.Audit.FilePath
			}
			if path == "" {
				return errors.New("no audit file given and none configured")
			}

			result := audit.Verify(path)
			b, _ := json.MarshalIndent(result, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			if !result.Valid {
				return fmt.Errorf("%w: %s", ErrBrokenChain, result.Error)
			}
			return nil
		},
	}
}
