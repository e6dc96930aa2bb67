package util

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ValentinKolb/rmq/lib/namesrv"
	"github.com/ValentinKolb/rmq/rpc/common"
	"github.com/ValentinKolb/rmq/rpc/transport"
	"github.com/ValentinKolb/rmq/rpc/transport/tcp"
	"github.com/ValentinKolb/rmq/rpc/transport/unix"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50
)

var Logger = logger.GetLogger("cli")

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// SetupClientFlags adds the remoting client and name server flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	defaults := common.DefaultClientConfig()

	key := "namesrv"
	cmd.PersistentFlags().String(key, "", WrapString("Semicolon separated name server addresses (host:port). Falls back to --namesrv-domain or the NAMESRV_ADDR environment variable"))

	key = "namesrv-domain"
	cmd.PersistentFlags().String(key, "", WrapString("URL of an address server returning the name server list. Used if --namesrv is empty"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, defaults.TimeoutSecond, WrapString("The request timeout in seconds"))

	key = "connect-timeout"
	cmd.PersistentFlags().Int(key, defaults.ConnectTimeoutSecond, WrapString("The connect timeout in seconds"))

	key = "instance-name"
	cmd.PersistentFlags().String(key, "", WrapString("The instance name of this client, a random one is used if empty"))

	key = "access-key"
	cmd.PersistentFlags().String(key, "", WrapString("The ACL access key. Requests are signed if access and secret key are set"))

	key = "secret-key"
	cmd.PersistentFlags().String(key, "", WrapString("The ACL secret key"))

	key = "security-token"
	cmd.PersistentFlags().String(key, "", WrapString("The optional ACL security token"))

	key = "transport-write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer (in KB, 0 keeps the OS default)"))

	key = "transport-read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer (in KB, 0 keeps the OS default)"))

	key = "transport-tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "transport-tcp-keepalive"
	cmd.PersistentFlags().Int(key, 30, WrapString("The keepalive interval in seconds (only for tcp, 0 disables keepalive)"))

	key = "transport-tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time in seconds (only for tcp, negative keeps the OS default)"))

	key = "log-level"
	cmd.PersistentFlags().String(key, defaults.LogLevel, WrapString("The log level (debug, info, warn, error)"))
}

// InitClientConfig initializes configuration from environment variables
func InitClientConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("rmq")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() common.ClientConfig {
	conf := common.ClientConfig{
		NameServers:          splitList(viper.GetString("namesrv")),
		NameServerDomain:     viper.GetString("namesrv-domain"),
		TimeoutSecond:        viper.GetInt("timeout"),
		ConnectTimeoutSecond: viper.GetInt("connect-timeout"),
		Codec:                viper.GetString("codec"),
		InstanceName:         viper.GetString("instance-name"),
		Credentials: common.Credentials{
			AccessKey:     viper.GetString("access-key"),
			SecretKey:     viper.GetString("secret-key"),
			SecurityToken: viper.GetString("security-token"),
		},
		Transport: common.TransportConfig{
			TCPNoDelay:      viper.GetBool("transport-tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("transport-tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("transport-tcp-linger"),
			WriteBufferSize: viper.GetInt("transport-write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("transport-read-buffer") * 1024,
		},
		LogLevel: viper.GetString("log-level"),
	}

	if conf.InstanceName == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "rmq"
		}
		conf.InstanceName = fmt.Sprintf("%s@%s", host, uuid.NewString()[:8])
	}

	return conf
}

// GetTransport creates the remoting client based on configuration
func GetTransport(config common.ClientConfig) (transport.IRemotingClient, error) {
	switch viper.GetString("transport") {
	case "tcp", "":
		return tcp.NewTCPClientTransport(config)
	case "unix":
		return unix.NewUnixClientTransport(config)
	default:
		return nil, fmt.Errorf("invalid transport %s", viper.GetString("transport"))
	}
}

// GetAddressProvider returns the name server provider for config: the explicit
// list, else the address server, else NAMESRV_ADDR
func GetAddressProvider(config common.ClientConfig) namesrv.IAddressProvider {
	if config.NameServerDomain != "" {
		return namesrv.NewPassthroughProvider(config.NameServers, namesrv.NewHTTPProvider(config.NameServerDomain))
	}
	return namesrv.NewPassthroughProvider(config.NameServers, namesrv.NewEnvProvider())
}

// Client bundles the remoting client and the name server resolver of a command
type Client struct {
	Config      common.ClientConfig
	Remoting    transport.IRemotingClient
	NameServers *namesrv.NameServers
}

// NewClient creates the remoting client and resolves the name servers
func NewClient(ctx context.Context) (*Client, error) {
	config := GetClientConfig()

	if err := common.InitLoggers(config.LogLevel); err != nil {
		return nil, err
	}
	Logger.Debugf("Using configuration: %s", config.String())

	remoting, err := GetTransport(config)
	if err != nil {
		return nil, err
	}

	servers, err := namesrv.New(ctx, GetAddressProvider(config), remoting)
	if err != nil {
		remoting.Shutdown()
		return nil, err
	}

	return &Client{Config: config, Remoting: remoting, NameServers: servers}, nil
}

// Close shuts the remoting client down
func (c *Client) Close() error {
	return c.Remoting.Shutdown()
}

// PrintMetrics writes the remoting metrics and the name server metrics of c to w
func PrintMetrics(w io.Writer, c *Client) {
	fmt.Fprintln(w, "# remoting")
	c.Remoting.WriteMetrics(w)
	fmt.Fprintln(w, "# name servers")
	metrics.WriteOnce(c.NameServers.Metrics(), w)
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// splitList splits a ';' or ',' separated list and drops empty entries
func splitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ';' || r == ',' })
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
