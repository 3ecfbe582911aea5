package serve

import (
	"fmt"

	"github.com/netrixframework/interop/apiserver"
	"github.com/netrixframework/interop/config"
	"github.com/netrixframework/interop/context"
	"github.com/netrixframework/interop/log"
	"github.com/netrixframework/interop/util"
	"github.com/spf13/cobra"
)

func ServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the adapter HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			termCh := util.Term()

			conf, err := config.Load(config.ConfigPath)
			if err != nil {
				return fmt.Errorf("failed to parse config: %s", err)
			}
			if addr != "" {
				conf.APIServerAddr = addr
			}
			log.Init(conf.LogConfig)
			defer log.Destroy()
			if config.LogLevel != "" {
				log.SetLevel(config.LogLevel)
			}

			ctx, err := context.NewRootContext(conf, log.DefaultLogger)
			if err != nil {
				return fmt.Errorf("failed to initialize adapter: %s", err)
			}
			server := apiserver.NewAPIServer(ctx)

			ctx.Start()
			if err := server.Start(); err != nil {
				ctx.Stop()
				return fmt.Errorf("failed to start API server: %s", err)
			}

			log.With(log.LogParams{
				"addr":         server.Addr(),
				"destinations": len(ctx.Dispatcher.Destinations()),
			}).Info("Adapter running")

			<-termCh
			log.Info("Received termination signal, shutting down")
			if err := server.Stop(); err != nil {
				log.Error(fmt.Sprintf("Failed to stop API server: %s", err))
			}
			ctx.Stop()
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server_addr of the config")
	return cmd
}
