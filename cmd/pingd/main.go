package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	pingserver "github.com/probeworks/pingd/server"
	"github.com/probeworks/pingd/share"
)

var serverHelp = `
  Usage: pingd [options]

  Examples:

    ./pingd --port=8080 --db=ping_data.db
    starts the REST API on port 8080 storing telemetry in ping_data.db

    ./pingd -c pingd.conf
    starts the server with settings from a TOML config file

  Options:

    --port, -p, TCP port the REST API listens on. Defaults to 8080.

    --db, Path to the sqlite database file. Defaults to "ping_data.db".

    --udp-addr, Address of the raw UDP echo responder. Defaults to
    "0.0.0.0:9999"; set to an empty string to disable it.

    --log-file, -l, Path to the log file. Defaults to stdout.

    --verbose, -v, Log level: error, info or debug. Defaults to info.

    --config, -c, Path to a TOML configuration file. The config file can
    additionally define the ping instruction list pushed to clients on
    heartbeat, e.g.:

      [instructions]
      enabled = true
      send_probability = 0.9

      [[instructions.instruction]]
      host = "8.8.8.8"
      protocol = "icmp"
      duration_seconds = 60
      interval_ms = 1000
`

var (
	RootCmd = &cobra.Command{
		Use: "pingd",
		Run: runMain,
	}

	cfgPath  *string
	viperCfg *viper.Viper
	cfg      = &pingserver.Config{}
)

func init() {
	pFlags := RootCmd.PersistentFlags()

	pFlags.IntP("port", "p", pingserver.DefaultPort, "")
	pFlags.String("db", pingserver.DefaultDBPath, "")
	pFlags.String("udp-addr", pingserver.DefaultUDPAddr, "")
	pFlags.StringP("log-file", "l", "", "")
	pFlags.StringP("verbose", "v", "", "")

	cfgPath = pFlags.StringP("config", "c", "", "")

	RootCmd.SetUsageFunc(func(*cobra.Command) error {
		fmt.Print(serverHelp)
		os.Exit(1)
		return nil
	})

	viperCfg = viper.New()
	viperCfg.SetConfigType("toml")

	viperCfg.SetDefault("server.port", pingserver.DefaultPort)
	viperCfg.SetDefault("server.db", pingserver.DefaultDBPath)
	viperCfg.SetDefault("server.udp_addr", pingserver.DefaultUDPAddr)
	viperCfg.SetDefault("logging.log_level", "info")

	// map config fields to CLI args
	_ = viperCfg.BindPFlag("server.port", pFlags.Lookup("port"))
	_ = viperCfg.BindPFlag("server.db", pFlags.Lookup("db"))
	_ = viperCfg.BindPFlag("server.udp_addr", pFlags.Lookup("udp-addr"))
	_ = viperCfg.BindPFlag("logging.log_file", pFlags.Lookup("log-file"))
	_ = viperCfg.BindPFlag("logging.log_level", pFlags.Lookup("verbose"))
}

func main() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func tryDecodeConfig() error {
	if *cfgPath != "" {
		viperCfg.SetConfigFile(*cfgPath)
	} else {
		viperCfg.AddConfigPath(".")
		viperCfg.SetConfigName("pingd.conf")
	}

	return share.DecodeViperConfig(viperCfg, cfg)
}

func runMain(*cobra.Command, []string) {
	err := tryDecodeConfig()
	if err != nil {
		log.Fatal(err)
	}

	err = cfg.ParseAndValidate()
	if err != nil {
		log.Fatal(err)
	}

	err = cfg.Logging.LogOutput.Start()
	if err != nil {
		log.Fatal(err)
	}
	defer func() {
		cfg.Logging.LogOutput.Shutdown()
	}()

	s, err := pingserver.NewServer(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer s.Close()

	if err = s.Run(); err != nil {
		log.Fatal(err)
	}
}
