package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/rmq/cmd/allocate"
	"github.com/ValentinKolb/rmq/cmd/route"
	"github.com/ValentinKolb/rmq/cmd/serve"
	"github.com/ValentinKolb/rmq/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "0.3.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "rmq",
		Short: "RocketMQ remoting client toolkit",
		Long: fmt.Sprintf(`rmq (v%s)

A RocketMQ remoting client written in Go: resolve name servers, query
topic routes, inspect consumer offsets and preview queue allocation.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of rmq",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("rmq v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(route.RouteCommands)
	RootCmd.AddCommand(allocate.AllocateCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "codec"
	RootCmd.PersistentFlags().String(key, "json", util.WrapString("header codec of outgoing frames (json, compact)"))
	key = "transport"
	RootCmd.PersistentFlags().String(key, "tcp", util.WrapString("transport to use (tcp, unix)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
