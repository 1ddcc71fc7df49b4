package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"geoalert/internal/di"
	"geoalert/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVarP(&flags.ConfigPath, "config", "c", "./config/config.yaml", "path to the YAML config; a .env beside it is loaded first")
	flag.BoolVarP(&flags.DebugMode, "debug", "d", false, "mirror logs to the console")
	flag.Parse()

	_, cleanup, err := di.InitApp(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "geoalert: %s\n", err)
		os.Exit(1)
	}
	cleanup()
}
