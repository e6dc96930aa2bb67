package serve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	cmdUtil "github.com/ValentinKolb/rmq/cmd/util"
	"github.com/ValentinKolb/rmq/lib/route"
	"github.com/ValentinKolb/rmq/rpc/common"
	"github.com/ValentinKolb/rmq/rpc/server"
	"github.com/ValentinKolb/rmq/rpc/transport"
	"github.com/ValentinKolb/rmq/rpc/transport/tcp"
	"github.com/ValentinKolb/rmq/rpc/transport/unix"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	serveCmdConfig = &common.ServerConfig{}
	ServeCmd       = &cobra.Command{
		Use:   "serve",
		Short: "Start a name server and broker stand-in",
		Long: `Start a responder that answers route queries and the consumer side broker requests from a state file. It is meant for development and tests of rmq clients without a running cluster.
The configuration can be set via command line flags or environment variables. The format of the environment variables is RMQ_<flag> (e.g. RMQ_ENDPOINT=127.0.0.1:9876)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

// responderState is the content of the state file
type responderState struct {
	// Routes maps topics to their route data
	Routes map[string]*route.TopicRouteData `json:"routes"`
	// Consumers maps consumer groups to consumer ids
	Consumers map[string][]string `json:"consumers"`
	// MaxOffsets maps topic -> queue id -> max offset
	MaxOffsets map[string]map[string]int64 `json:"maxOffsets"`
}

func init() {
	// initialize viper
	cobra.OnInitialize(initConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, "127.0.0.1:9876", cmdUtil.WrapString("The address on which the responder will listen (e.g. 127.0.0.1:9876, /tmp/rmq.sock, ...)"))

	key = "state-file"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("JSON file with the routes, consumers and max offsets to serve"))

	key = "broker-name"
	ServeCmd.PersistentFlags().String(key, "broker-a", cmdUtil.WrapString("The broker name this responder answers broker requests for"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, 16, cmdUtil.WrapString("The maximum number of requests handled concurrently per connection"))

	key = "timeout"
	ServeCmd.PersistentFlags().Int(key, 5, cmdUtil.WrapString("Timeout in seconds"))

	key = "metrics"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Print the server metrics in Prometheus text format on shutdown"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, "info", cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.TimeoutSecond = viper.GetInt("timeout")
	serveCmdConfig.MaxWorkersPerConn = viper.GetInt("workers")
	serveCmdConfig.Codec = viper.GetString("codec")
	serveCmdConfig.Transport = common.DefaultTransportConfig()
	serveCmdConfig.Transport.Endpoint = viper.GetString("endpoint")

	if serveCmdConfig.Transport.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	return common.InitLoggers(viper.GetString("log-level"))
}

// run starts the responder
func run(cmd *cobra.Command, _ []string) error {
	state, err := loadState(viper.GetString("state-file"))
	if err != nil {
		return err
	}

	// Parse the transport
	var t transport.IRemotingServer
	switch viper.GetString("transport") {
	case "tcp", "":
		t, err = tcp.NewTCPServerTransport(*serveCmdConfig)
	case "unix":
		t, err = unix.NewUnixServerTransport(*serveCmdConfig)
	default:
		return fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
	if err != nil {
		return err
	}

	nameServer := server.NewNameServerAdapter()
	for topic, data := range state.Routes {
		nameServer.SetRoute(topic, data)
	}

	broker := server.NewBrokerAdapter(viper.GetString("broker-name"))
	for group, ids := range state.Consumers {
		broker.SetConsumers(group, ids)
	}
	for topic, queues := range state.MaxOffsets {
		for id, offset := range queues {
			queueID, err := strconv.ParseInt(id, 10, 32)
			if err != nil {
				return fmt.Errorf("invalid queue id %s of topic %s: %w", id, topic, err)
			}
			broker.SetMaxOffset(topic, int32(queueID), offset)
		}
	}

	responder := server.NewResponder(t, nameServer, broker)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		_ = responder.Close()
	}()

	if err := responder.Serve(*serveCmdConfig); err != nil && !errors.Is(err, common.ErrShutdown) {
		return err
	}
	if viper.GetBool("metrics") {
		t.WriteMetrics(cmd.OutOrStdout())
	}
	return nil
}

// loadState reads the state file, an empty path serves no routes
func loadState(path string) (*responderState, error) {
	state := &responderState{}
	if path == "" {
		return state, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}
	if err := json.Unmarshal(route.RepairJSON(data), state); err != nil {
		return nil, fmt.Errorf("failed to decode state file %s: %w", path, err)
	}
	return state, nil
}

// initConfig reads in ENV variables if set.
func initConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("rmq")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}
