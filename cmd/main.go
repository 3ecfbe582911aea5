package cmd

import (
	"github.com/netrixframework/interop/cmd/process"
	"github.com/netrixframework/interop/cmd/send"
	"github.com/netrixframework/interop/cmd/serve"
	"github.com/netrixframework/interop/cmd/verify"
	"github.com/netrixframework/interop/config"
	"github.com/spf13/cobra"
)

// RootCmd returns the root cobra command of the adapter tool
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interop",
		Short: "Parse, validate and route messages between heterogeneous protocols",
	}
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.PersistentFlags().StringVarP(&config.ConfigPath, "config", "c", "", "Config file path (json, yaml or toml)")
	cmd.PersistentFlags().StringVar(&config.LogLevel, "log-level", "", "Log level, overrides the level of the config")
	cmd.AddCommand(serve.ServeCmd())
	cmd.AddCommand(process.ProcessCmd())
	cmd.AddCommand(send.SendCmd())
	cmd.AddCommand(verify.VerifyCmd())
	return cmd
}
