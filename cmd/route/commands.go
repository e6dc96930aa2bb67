package route

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/rmq/lib/message"
	"github.com/ValentinKolb/rmq/rpc/client"
	"github.com/spf13/cobra"
)

var (
	getCmd = &cobra.Command{
		Use:   "get [topic]",
		Short: "Prints the route data of a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := rmqClient.NameServers.QueryTopicRouteInfo(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	queuesCmd = &cobra.Command{
		Use:   "queues [topic]",
		Short: "Lists the subscribable (or with --publish the writable) queues of a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			publish, _ := cmd.Flags().GetBool("publish")

			var mqs []message.MessageQueue
			var err error
			if publish {
				mqs, err = rmqClient.NameServers.FetchPublishMessageQueues(cmd.Context(), args[0])
			} else {
				mqs, err = rmqClient.NameServers.FetchSubscribeMessageQueues(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			for _, mq := range mqs {
				fmt.Fprintln(cmd.OutOrStdout(), mq.String())
			}
			return nil
		},
	}
	brokerCmd = &cobra.Command{
		Use:   "broker [topic]",
		Short: "Prints the master address of a broker serving the topic (or with --name of the named broker)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := rmqClient.NameServers.UpdateTopicRouteInfo(cmd.Context(), args[0]); err != nil {
				return err
			}

			var addr string
			var ok bool
			if name, _ := cmd.Flags().GetString("name"); name != "" {
				addr, ok = rmqClient.NameServers.FindBrokerAddrByName(name)
			} else {
				addr, ok = rmqClient.NameServers.FindBrokerAddrByTopic(args[0])
			}
			if !ok {
				return fmt.Errorf("no broker address found for %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
	consumersCmd = &cobra.Command{
		Use:   "consumers [topic] [group]",
		Short: "Lists the consumer ids of a group as seen by a broker of the topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := consumerList(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	offsetsCmd = &cobra.Command{
		Use:   "offsets [topic] [group]",
		Short: "Prints the committed and max offset of every queue of a topic",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			topic, group := args[0], args[1]
			if _, err := rmqClient.NameServers.UpdateTopicRouteInfo(cmd.Context(), topic); err != nil {
				return err
			}
			mqs, err := rmqClient.NameServers.FetchSubscribeMessageQueues(cmd.Context(), topic)
			if err != nil {
				return err
			}

			brokers := client.NewBrokerClient(rmqClient.Remoting, rmqClient.NameServers)
			for _, mq := range mqs {
				maxOffset, err := brokers.GetMaxOffset(cmd.Context(), mq)
				if err != nil {
					return err
				}
				committed, err := brokers.QueryConsumerOffset(cmd.Context(), group, mq)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%-12s %4d  committed=-  max=%d  (%v)\n", mq.BrokerName, mq.QueueID, maxOffset, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %4d  committed=%d  max=%d  lag=%d\n", mq.BrokerName, mq.QueueID, committed, maxOffset, maxOffset-committed)
			}
			return nil
		},
	}
	commitCmd = &cobra.Command{
		Use:   "commit [topic] [broker] [queueId] [group] [offset]",
		Short: "Commits a consumer offset for one queue (oneway)",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			var queueID int32
			var offset int64
			if _, err := fmt.Sscan(args[2], &queueID); err != nil {
				return fmt.Errorf("queueId must be a number: %w", err)
			}
			if _, err := fmt.Sscan(args[4], &offset); err != nil {
				return fmt.Errorf("offset must be a number: %w", err)
			}
			if _, err := rmqClient.NameServers.UpdateTopicRouteInfo(cmd.Context(), args[0]); err != nil {
				return err
			}

			mq := message.MessageQueue{Topic: args[0], BrokerName: args[1], QueueID: queueID}
			brokers := client.NewBrokerClient(rmqClient.Remoting, rmqClient.NameServers)
			if err := brokers.UpdateConsumerOffset(cmd.Context(), args[3], mq, offset); err != nil {
				return err
			}

			// writes are ordered per connection, the query is sent after the update
			committed, err := brokers.QueryConsumerOffset(cmd.Context(), args[3], mq)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "committed successfully (offset=%d)\n", committed)
			return nil
		},
	}
)

func init() {
	queuesCmd.Flags().Bool("publish", false, "List the writable queues instead of the readable ones")
	brokerCmd.Flags().String("name", "", "Broker name to resolve instead of a random broker of the topic")
}

// consumerList asks a broker of topic for the consumer ids of group
func consumerList(ctx context.Context, topic, group string) ([]string, error) {
	if _, err := rmqClient.NameServers.UpdateTopicRouteInfo(ctx, topic); err != nil {
		return nil, err
	}
	addr, ok := rmqClient.NameServers.FindBrokerAddrByTopic(topic)
	if !ok {
		return nil, fmt.Errorf("no broker address found for %s", topic)
	}
	return client.NewBrokerClient(rmqClient.Remoting, rmqClient.NameServers).GetConsumerListByGroup(ctx, addr, group)
}
