package route

import (
	"context"

	"github.com/ValentinKolb/rmq/cmd/util"
	"github.com/spf13/cobra"
)

var (
	rmqClient *util.Client

	// RouteCommands represents the route command group
	RouteCommands = &cobra.Command{
		Use:                "route",
		Short:              "Query topic routes, brokers and consumer offsets",
		PersistentPreRunE:  setupRouteClient,
		PersistentPostRunE: closeRouteClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common client flags to the route command
	util.SetupClientFlags(RouteCommands)

	RouteCommands.PersistentFlags().Bool("metrics", false, util.WrapString("Print the client metrics in Prometheus text format after the command"))

	// Add subcommands
	RouteCommands.AddCommand(getCmd)
	RouteCommands.AddCommand(queuesCmd)
	RouteCommands.AddCommand(brokerCmd)
	RouteCommands.AddCommand(consumersCmd)
	RouteCommands.AddCommand(offsetsCmd)
	RouteCommands.AddCommand(commitCmd)
}

// setupRouteClient initializes the remoting client and the name server resolver
func setupRouteClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	c, err := util.NewClient(context.Background())
	if err != nil {
		return err
	}
	rmqClient = c
	return nil
}

// closeRouteClient prints the metrics if requested and shuts the client down
func closeRouteClient(cmd *cobra.Command, _ []string) error {
	if rmqClient == nil {
		return nil
	}
	if printMetrics, _ := cmd.Flags().GetBool("metrics"); printMetrics {
		util.PrintMetrics(cmd.OutOrStdout(), rmqClient)
	}
	return rmqClient.Close()
}
