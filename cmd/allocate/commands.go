package allocate

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ValentinKolb/rmq/cmd/util"
	"github.com/ValentinKolb/rmq/lib/allocate"
	"github.com/ValentinKolb/rmq/lib/message"
	"github.com/ValentinKolb/rmq/lib/selector"
	"github.com/ValentinKolb/rmq/rpc/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	groupCmd = &cobra.Command{
		Use:   "group [topic] [group]",
		Short: "Allocates the queues of a topic to the live consumers of a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, group := args[0], args[1]

			c, err := util.NewClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if _, err := c.NameServers.UpdateTopicRouteInfo(cmd.Context(), topic); err != nil {
				return err
			}
			mqs, err := c.NameServers.FetchSubscribeMessageQueues(cmd.Context(), topic)
			if err != nil {
				return err
			}
			addr, ok := c.NameServers.FindBrokerAddrByTopic(topic)
			if !ok {
				return fmt.Errorf("no broker address found for %s", topic)
			}
			ids, err := client.NewBrokerClient(c.Remoting, c.NameServers).GetConsumerListByGroup(cmd.Context(), addr, group)
			if err != nil {
				return err
			}

			strategy, err := strategyFromFlags(topic)
			if err != nil {
				return err
			}
			writeAllocation(cmd.OutOrStdout(), strategy, group, mqs, ids)
			return nil
		},
	}
	simulateCmd = &cobra.Command{
		Use:   "simulate [topic]",
		Short: "Allocates generated queues to the given consumer ids without contacting a name server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			brokers, _ := cmd.Flags().GetString("brokers")
			perBroker, _ := cmd.Flags().GetInt("queues")
			members, _ := cmd.Flags().GetString("members")

			mqs := make([]message.MessageQueue, 0)
			for _, broker := range splitList(brokers) {
				for i := 0; i < perBroker; i++ {
					mqs = append(mqs, message.MessageQueue{Topic: args[0], BrokerName: broker, QueueID: int32(i)})
				}
			}

			strategy, err := strategyFromFlags(args[0])
			if err != nil {
				return err
			}
			writeAllocation(cmd.OutOrStdout(), strategy, "simulation", mqs, splitList(members))
			return nil
		},
	}
	selectCmd = &cobra.Command{
		Use:   "select [topic]",
		Short: "Shows which writable queue a queue selector picks for a series of messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("selector")
			count, _ := cmd.Flags().GetInt("count")
			keys, _ := cmd.Flags().GetString("sharding-keys")

			s, err := selector.ParseSelector(name)
			if err != nil {
				return err
			}

			c, err := util.NewClient(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			mqs, err := c.NameServers.FetchPublishMessageQueues(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			shardingKeys := splitList(keys)
			for i := 0; i < count; i++ {
				msg := message.NewMessage(args[0], nil, "")
				if len(shardingKeys) > 0 {
					msg.SetShardingKey(shardingKeys[i%len(shardingKeys)])
				}
				mq, ok := s.Select(msg, mqs)
				if !ok {
					return fmt.Errorf("selector %s found no queue for message %d", name, i)
				}
				key, _ := msg.ShardingKey()
				fmt.Fprintf(cmd.OutOrStdout(), "%4d %-16s %s\n", i, key, mq.String())
			}
			return nil
		},
	}
)

func init() {
	simulateCmd.Flags().String("brokers", "broker-a", "Comma separated broker names")
	simulateCmd.Flags().Int("queues", 4, "Number of queues per broker")
	simulateCmd.Flags().String("members", "", "Comma separated consumer ids")

	selectCmd.Flags().String("selector", "roundrobin", "Queue selector (random, roundrobin, hash)")
	selectCmd.Flags().Int("count", 8, "Number of messages")
	selectCmd.Flags().String("sharding-keys", "", "Comma separated sharding keys, used in turn")
}

// strategyFromFlags builds the allocate strategy configured by the strategy,
// idcs and config-queues flags
func strategyFromFlags(topic string) (allocate.IAllocateStrategy, error) {
	mqs, err := parseQueues(topic, viper.GetString("config-queues"))
	if err != nil {
		return nil, err
	}
	return allocate.ParseStrategy(viper.GetString("strategy"), mqs, splitList(viper.GetString("idcs")))
}

// writeAllocation writes the queues every member of ids is assigned
func writeAllocation(w io.Writer, strategy allocate.IAllocateStrategy, group string, mqs []message.MessageQueue, ids []string) {
	fmt.Fprintf(w, "strategy %s: %d queues, %d consumers\n", strategy.Name(), len(mqs), len(ids))
	for _, id := range ids {
		assigned := strategy.Allocate(group, id, mqs, ids)
		fmt.Fprintf(w, "%s (%d)\n", id, len(assigned))
		for _, mq := range assigned {
			fmt.Fprintf(w, "  %s\n", mq.String())
		}
	}
}

// parseQueues parses a "broker:queueId,..." list
func parseQueues(topic, s string) ([]message.MessageQueue, error) {
	mqs := make([]message.MessageQueue, 0)
	for _, entry := range splitList(s) {
		broker, id, ok := strings.Cut(entry, ":")
		if !ok {
			return nil, fmt.Errorf("invalid queue %q (expected broker:queueId)", entry)
		}
		queueID, err := strconv.ParseInt(id, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid queue id in %q: %w", entry, err)
		}
		mqs = append(mqs, message.MessageQueue{Topic: topic, BrokerName: broker, QueueID: int32(queueID)})
	}
	return mqs, nil
}

func splitList(s string) []string {
	out := make([]string, 0)
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
