// Package flags provides support for gtgated CLI args.
package flags

import (
	"errors"
	"flag"

	"gtgate.dev/gtgate/config"
)

// ErrExcessArgs is returned when unparsed arguments remain.
var ErrExcessArgs = errors.New("excess arguments provided")

// ServerFlags holds CLI args for the gateway daemon.
type ServerFlags struct {
	ConfigPath    string
	ListenAddress string
	Verbose       bool
}

// ParseServerArgs defines and parses the flags from the cmd line for
// gtgated.
func ParseServerArgs(args []string) (*ServerFlags, error) {
	f := &ServerFlags{}
	fs := flag.NewFlagSet(args[0], flag.ContinueOnError)
	defineServerFlags(fs, f)

	err := fs.Parse(args[1:])
	if err != nil {
		return nil, err
	}
	if fs.NArg() > 0 { // there were unparsed args
		return nil, ErrExcessArgs
	}
	return f, nil
}

func defineServerFlags(fs *flag.FlagSet, f *ServerFlags) {
	fs.StringVar(&f.ConfigPath, "C", "", "path to server config file")
	fs.StringVar(&f.ListenAddress, "l", "", "listen address, overrides the config file")
	fs.BoolVar(&f.Verbose, "v", false, "enable debug logging")
}

// LoadServerConfigFromFlags follows the configpath provided in flags
// (or default) and updates the config with overrides from flags.
func LoadServerConfigFromFlags(f *ServerFlags) (*config.ServerConfig, error) {
	sc, err := config.GetServer(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	if f.ListenAddress != "" {
		sc.ListenAddress = f.ListenAddress
	}
	if f.Verbose {
		sc.LogLevel = "debug"
	}
	return sc, nil
}
