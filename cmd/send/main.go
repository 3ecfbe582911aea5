package send

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/netrixframework/interop/cmd/process"
	"github.com/netrixframework/interop/config"
	"github.com/netrixframework/interop/types"
	"github.com/netrixframework/interop/util"
	"github.com/spf13/cobra"
)

func SendCmd() *cobra.Command {
	opts := &process.Options{}
	var addr string
	cmd := &cobra.Command{
		Use:   "send [files...]",
		Short: "Submit messages stored in files to a running adapter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				conf, err := config.Load(config.ConfigPath)
				if err != nil {
					return fmt.Errorf("failed to parse config: %s", err)
				}
				addr = conf.APIServerAddr
			}
			msgs, err := opts.ReadMessages(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			body, err := json.Marshal(msgs)
			if err != nil {
				return err
			}

			resp, err := util.SendMsg(http.MethodPost, addr+"/messages", string(body), util.JsonRequest())
			if err != nil && !errors.Is(err, util.ErrBadResponse) {
				return fmt.Errorf("failed to send messages: %w", err)
			}
			if err != nil {
				return fmt.Errorf("%w: %s", err, resp)
			}
			var reply struct {
				Results []*types.RouteResult `json:"results"`
			}
			if err := json.Unmarshal([]byte(resp), &reply); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return process.Print(cmd.OutOrStdout(), reply.Results)
		},
	}
	opts.Bind(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "Address of the adapter, defaults to server_addr of the config")
	return cmd
}
