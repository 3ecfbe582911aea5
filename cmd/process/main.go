package process

import (
	goctx "context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/netrixframework/interop/config"
	"github.com/netrixframework/interop/context"
	"github.com/netrixframework/interop/log"
	"github.com/netrixframework/interop/types"
	"github.com/spf13/cobra"
)

// ErrNotRouted is returned when at least one message was rejected or failed
var ErrNotRouted = errors.New("messages not routed")

// Options of the process and send commands
type Options struct {
	// Protocol when set, every file holds a raw payload of this protocol
	Protocol string
	// Source system of wrapped payloads
	Source string
	// Target system of wrapped payloads
	Target string
}

// Bind registers the flags of o on cmd
func (o *Options) Bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Protocol, "protocol", "p", "", "Treat files as raw payloads of this protocol")
	cmd.Flags().StringVarP(&o.Source, "source", "s", "cli", "Source system of raw payloads")
	cmd.Flags().StringVarP(&o.Target, "target", "t", "", "Target system of raw payloads")
}

// ReadMessages reads the envelopes stored in the given files, "-" reads stdin
func (o *Options) ReadMessages(stdin io.Reader, paths []string) ([]*types.ProtocolMessage, error) {
	var protocol types.Protocol
	if o.Protocol != "" {
		p, err := types.ParseProtocol(o.Protocol)
		if err != nil {
			return nil, err
		}
		protocol = p
	}
	var msgs []*types.ProtocolMessage
	for _, path := range paths {
		var data []byte
		var err error
		if path == "-" {
			data, err = io.ReadAll(stdin)
		} else {
			data, err = os.ReadFile(path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		if protocol != "" {
			msg := types.NewProtocolMessage(protocol, types.Inbound, o.Source, json.RawMessage(data))
			if o.Target != "" {
				msg = msg.WithTarget(o.Target)
			}
			msgs = append(msgs, msg)
			continue
		}
		decoded, err := types.DecodeMessages(data)
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
		msgs = append(msgs, decoded...)
	}
	return msgs, nil
}

func ProcessCmd() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "process [files...]",
		Short: "Run messages stored in files through the adapter and print the results",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Load(config.ConfigPath)
			if err != nil {
				return fmt.Errorf("failed to parse config: %s", err)
			}
			log.Init(conf.LogConfig)
			defer log.Destroy()
			if config.LogLevel != "" {
				log.SetLevel(config.LogLevel)
			}

			msgs, err := opts.ReadMessages(cmd.InOrStdin(), args)
			if err != nil {
				return err
			}
			ctx, err := context.NewRootContext(conf, log.DefaultLogger)
			if err != nil {
				return fmt.Errorf("failed to initialize adapter: %s", err)
			}
			defer ctx.Stop()

			results := ctx.Adapter.ProcessBatch(goctx.Background(), msgs)
			return Print(cmd.OutOrStdout(), results)
		},
	}
	opts.Bind(cmd)
	return cmd
}

// Print writes results as indented JSON and reports the messages which were not routed
func Print(w io.Writer, results []*types.RouteResult) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return err
	}
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrNotRouted, failed, len(results))
	}
	return nil
}
