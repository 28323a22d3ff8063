package config

import (
	"flag"
	"io"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/tradesignals/internal/domain"
)

// Flags are the command line switches.
type Flags struct {
	ConfigPath string
	EnvFile    string
	Setup      bool
	Serve      bool
	Watch      bool
	// Market restricts a one-shot run to crypto or forex. Empty means both.
	Market domain.MarketKind
	Addr   string
}

// ParseFlags parses args without the program name.
func ParseFlags(args []string, output io.Writer) (Flags, error) {
	var f Flags
	var market string

	fs := flag.NewFlagSet("tradesignals", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&f.ConfigPath, "config", "", "path to yaml config")
	fs.StringVar(&f.EnvFile, "env", ".env", "path to .env file with secrets")
	fs.BoolVar(&f.Setup, "setup", false, "run the interactive configuration wizard")
	fs.BoolVar(&f.Serve, "serve", false, "serve the HTTP API instead of printing one batch")
	fs.BoolVar(&f.Watch, "watch", false, "regenerate signals every batch.watch_interval")
	fs.StringVar(&market, "market", "", "crypto or forex, empty for both")
	fs.StringVar(&f.Addr, "addr", "", "override server.addr")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}

	if market != "" {
		m, err := domain.ParseMarketKind(market)
		if err != nil {
			return Flags{}, errors.Wrap(err, "invalid -market")
		}
		f.Market = m
	}
	if f.Setup && (f.Serve || f.Watch) {
		return Flags{}, errors.New("-setup cannot be combined with -serve or -watch")
	}
	return f, nil
}
