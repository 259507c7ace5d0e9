package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	. "github.com/alexdcox/accumulate-go"
	"github.com/pkg/errors"
)

type _config struct {
	ServiceConfig
	ConfigPath string `json:"configpath"`
}

// Load layers the config file, then ACCUMULATE_* environment variables, then
// any flags given explicitly on the command line.
func (c *_config) Load(args []string) (err error) {
	flags := flag.NewFlagSet("signer", flag.ContinueOnError)

	var (
		network       string
		endpoint      string
		listenAddress string
		databasePath  string
		logLevel      string
		preparedTTL   time.Duration
		sweepInterval time.Duration
		rateLimit     float64
		rateBurst     int
	)

	flags.StringVar(&c.ConfigPath, "config", "", "Path to a yaml or toml config file")
	flags.StringVar(&network, "network", "", "Set network (mainnet|kermit|fozzie|local)")
	flags.StringVar(&endpoint, "endpoint", "", "Override the network's v3 api endpoint")
	flags.StringVar(&listenAddress, "listenaddress", "", "Set host:port for the http/rpc listener")
	flags.StringVar(&databasePath, "databasepath", "", "Path to a sqlite database for prepared transactions (in memory when empty)")
	flags.StringVar(&logLevel, "loglevel", "", "Set the log level (trace|debug|info|warn|error|fatal) Can also be set via the ACCUMULATE_LOG_LEVEL environment variable")
	flags.DurationVar(&preparedTTL, "preparedttl", 0, "How long a prepared transaction can wait for its signature")
	flags.DurationVar(&sweepInterval, "sweepinterval", 0, "How often expired prepared transactions are dropped")
	flags.Float64Var(&rateLimit, "ratelimit", 0, "Requests per second allowed per client ip on /tx")
	flags.IntVar(&rateBurst, "rateburst", 0, "Burst allowed per client ip on /tx")

	if err = flags.Parse(args); err != nil {
		return errors.WithStack(err)
	}

	if c.ConfigPath != "" {
		if c.ServiceConfig, err = LoadServiceConfig(c.ConfigPath); err != nil {
			return
		}
	} else {
		c.ServiceConfig = DefaultServiceConfig()
	}

	if err = c.ApplyEnv(os.LookupEnv); err != nil {
		return
	}

	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "network":
			c.Network = network
		case "endpoint":
			c.Endpoint = endpoint
		case "listenaddress":
			c.ListenAddress = listenAddress
		case "databasepath":
			c.DatabasePath = databasePath
		case "loglevel":
			c.LogLevel = logLevel
		case "preparedttl":
			c.PreparedTTL = preparedTTL
		case "sweepinterval":
			c.SweepInterval = sweepInterval
		case "ratelimit":
			c.RateLimit = rateLimit
		case "rateburst":
			c.RateBurst = rateBurst
		}
	})

	return c.Validate()
}

func (c *_config) Store() (store PreparedStore, err error) {
	if c.DatabasePath == "" {
		return NewInMemoryPreparedStore(), nil
	}
	return NewSqlLitePreparedStore(c.DatabasePath)
}

var log = Log()

var config *_config

func main() {
	config = &_config{}

	if err := config.Load(os.Args[1:]); err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	logLevel, err := SetLogLevel(config.LogLevel)
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}
	log.Info().Msgf("setting log level to: '%s'", logLevel)

	store, err := config.Store()
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	client, err := NewClient(&ClientOptions{
		Network:       Network(config.Network),
		Endpoint:      config.Endpoint,
		Store:         store,
		PreparedTTL:   config.PreparedTTL,
		SweepInterval: config.SweepInterval,
	})
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	httpServer, err := NewHttpRpcServer(config, client)
	if err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	client.Coordinator().Events().On(func(e *CoordinatorEvent) {
		log.Debug().Msgf("coordinator event: %s %s %x %s", e.Type, e.RequestID, []byte(e.TransactionHash), e.Error)
	})

	client.Start()

	go func() {
		if err := httpServer.Start(); err != nil {
			log.Fatal().Msgf("%+v", err)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	log.Info().Msg("caught interrupt/terminate signal, attempting graceful shutdown...")

	if err = httpServer.Stop(); err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	if err = client.Stop(); err != nil {
		log.Fatal().Msgf("%+v", err)
	}

	log.Info().Msg("graceful shutdown complete")
}
