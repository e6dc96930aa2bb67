package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Transport configuration
// --------------------------------------------------------------------------

// TransportConfig holds the socket options applied to every connection
type TransportConfig struct {
	// Endpoint is the listen address (server only)
	Endpoint string

	TCPNoDelay      bool
	TCPKeepAliveSec int
	// TCPLingerSec < 0 keeps the OS default
	TCPLingerSec    int
	WriteBufferSize int
	ReadBufferSize  int
}

// DefaultTransportConfig returns the socket options used when none are configured
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		TCPNoDelay:      true,
		TCPKeepAliveSec: 30,
		TCPLingerSec:    -1,
	}
}

// --------------------------------------------------------------------------
// Client configuration struct
// --------------------------------------------------------------------------

// Credentials enable request signing when AccessKey and SecretKey are set
type Credentials struct {
	AccessKey     string
	SecretKey     string
	SecurityToken string
}

// IsEmpty reports whether signing is disabled
func (c *Credentials) IsEmpty() bool {
	return c == nil || c.AccessKey == "" || c.SecretKey == ""
}

// ClientConfig holds all parameters of a remoting client and its name server resolver
type ClientConfig struct {
	// NameServers is an explicit name server list, the resolver falls back to
	// NameServerDomain (HTTP) or NAMESRV_ADDR when it is empty
	NameServers      []string
	NameServerDomain string

	// TimeoutSecond applies to requests whose context carries no deadline
	TimeoutSecond        int
	ConnectTimeoutSecond int

	// Codec is the header codec used for outgoing frames ("json" or "compact")
	Codec string

	// InstanceName identifies this client process, a random one is generated when empty
	InstanceName string

	Credentials Credentials
	Transport   TransportConfig

	LogLevel string
}

// DefaultClientConfig returns a configuration with the defaults of the CLI flags
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		TimeoutSecond:        3,
		ConnectTimeoutSecond: 3,
		Codec:                "json",
		Transport:            DefaultTransportConfig(),
		LogLevel:             "info",
	}
}

// Timeout returns the request timeout as duration
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// ConnectTimeout returns the connect timeout as duration
func (c *ClientConfig) ConnectTimeout() time.Duration {
	return time.Duration(c.ConnectTimeoutSecond) * time.Second
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Instance", c.InstanceName)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Connect Timeout", fmt.Sprintf("%d sec", c.ConnectTimeoutSecond))
	addField("Codec", c.Codec)
	addField("Log Level", c.LogLevel)

	addSection("Name Servers")
	if len(c.NameServers) == 0 {
		domain := c.NameServerDomain
		if domain == "" {
			domain = "NAMESRV_ADDR"
		}
		addField("Resolved From", domain)
	}
	for i, addr := range c.NameServers {
		addField(strconv.Itoa(i), addr)
	}

	addSection("Transport")
	addField("TCP No Delay", strconv.FormatBool(c.Transport.TCPNoDelay))
	addField("TCP Keep Alive", fmt.Sprintf("%d sec", c.Transport.TCPKeepAliveSec))
	addField("TCP Linger", fmt.Sprintf("%d sec", c.Transport.TCPLingerSec))
	addField("Read Buffer", fmt.Sprintf("%d bytes", c.Transport.ReadBufferSize))
	addField("Write Buffer", fmt.Sprintf("%d bytes", c.Transport.WriteBufferSize))

	addSection("Credentials")
	if c.Credentials.IsEmpty() {
		addField("Signing", "disabled")
	} else {
		addField("Access Key", c.Credentials.AccessKey)
		addField("Secret Key", "********")
		addField("Security Token", strconv.FormatBool(c.Credentials.SecurityToken != ""))
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// Server configuration struct
// --------------------------------------------------------------------------

// ServerConfig configures the remoting server used as responder (mock name
// servers and brokers)
type ServerConfig struct {
	TimeoutSecond     int
	MaxWorkersPerConn int
	Codec             string
	Transport         TransportConfig
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Remoting Server")
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(c.MaxWorkersPerConn))
	addField("Codec", c.Codec)

	return sb.String()
}
