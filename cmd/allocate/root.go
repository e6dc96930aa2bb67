package allocate

import (
	"github.com/ValentinKolb/rmq/cmd/util"
	"github.com/spf13/cobra"
)

var (
	// AllocateCommands represents the allocate command group
	AllocateCommands = &cobra.Command{
		Use:   "allocate",
		Short: "Show how queues are allocated to consumers and selected for messages",
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return util.BindCommandFlags(cmd)
		},
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common client flags to the allocate command
	util.SetupClientFlags(AllocateCommands)

	AllocateCommands.PersistentFlags().String("strategy", "AVG", util.WrapString("Allocate strategy (AVG, AVG_BY_CIRCLE, CONFIG, MACHINE_ROOM, CONSISTENT_HASH)"))
	AllocateCommands.PersistentFlags().String("idcs", "", util.WrapString("Comma separated machine rooms used by MACHINE_ROOM (broker names are idc@name)"))
	AllocateCommands.PersistentFlags().String("config-queues", "", util.WrapString("Comma separated broker:queueId list used by CONFIG"))

	// Add subcommands
	AllocateCommands.AddCommand(groupCmd)
	AllocateCommands.AddCommand(simulateCmd)
	AllocateCommands.AddCommand(selectCmd)
}
