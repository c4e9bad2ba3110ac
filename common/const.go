package common

const (
	// DefaultSessionKey is the session id used when a request does not
	// supply one. It is also the pool key for the proxyless client.
	DefaultSessionKey = "default"

	// DefaultListenAddress is the address the gateway binds when the
	// config file does not specify one.
	DefaultListenAddress = "0.0.0.0:3000"

	// DefaultWorkers is the number of blocking workers the dispatch
	// bridge admits concurrently when the config file does not specify
	// a count.
	DefaultWorkers = 64

	// ServerConfigDirectory is the directory holding the gtgated
	// configuration file.
	ServerConfigDirectory = "/etc/gtgated"
)
