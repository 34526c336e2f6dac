package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"gopkg.in/yaml.v2"

	"github.com/akulov/framesweep/pkg/framesweep"
	util_log "github.com/akulov/framesweep/pkg/util/log"
)

func main() {
	var (
		cfg        framesweep.Config
		configFile string
		mode       string
		destRoot   string
	)

	f := flag.NewFlagSet("framesweep", flag.ExitOnError)
	f.StringVar(&configFile, "config.file", "", "Path to the yaml configuration file.")
	f.StringVar(&mode, "mode", framesweep.ModeScan, "One of: scan, move, delete, watch.")
	f.StringVar(&destRoot, "dest", "", "Destination directory for move mode.")
	cfg.RegisterFlags(f)

	_ = f.Parse(os.Args[1:])

	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
		if err := yaml.Unmarshal(buf, &cfg); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}

		// Explicit flags win over the file.
		_ = f.Parse(os.Args[1:])
	}

	util_log.InitLogger(&cfg.Log)

	reg := prometheus.NewRegistry()
	app, err := framesweep.New(cfg, reg, util_log.Logger)
	util_log.CheckFatal("initializing framesweep", err)

	ctx := context.Background()

	switch mode {
	case framesweep.ModeScan:
		plan, err := app.Scan(ctx)
		util_log.CheckFatal("running scan", err)

		for _, rm := range plan.Manifest {
			fmt.Printf("%s\t%s\t%s\n", rm.Rule, rm.Code, rm.Path)
		}
	case framesweep.ModeMove:
		if destRoot == "" {
			util_log.CheckFatal("running move", errors.New("move mode requires -dest"))
		}

		rep, err := app.Move(ctx, destRoot)
		util_log.CheckFatal("running move", err)
		fmt.Println(rep.String())
	case framesweep.ModeDelete:
		rep, err := app.Delete(ctx)
		util_log.CheckFatal("running delete", err)
		fmt.Println(rep.String())
	case framesweep.ModeWatch:
		util_log.CheckFatal("running watch", app.Watch(ctx))
	default:
		util_log.CheckFatal("parsing mode", errors.Errorf("unknown mode: %s", mode))
	}
}
