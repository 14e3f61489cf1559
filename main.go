package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/offpeak/envplace/runner"
)

const version = "0.3.0"

var (
	cfgPath     string
	debugMode   bool
	showVersion bool
	cmdArgs     map[string]runner.TomlInfo
)

func helpMessage() {
	fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s:\n\n", os.Args[0])
	fmt.Printf("If no command is provided %s reads .envplace.toml from the working directory\n", os.Args[0])
	fmt.Printf("and injects the configured env_file keys into the manifest placeholder store.\n\n")
	fmt.Printf("Commands:\n  init\tcreate a default .envplace.toml\n\n")
	fmt.Printf("Options:\n")
	flag.PrintDefaults()
}

func init() {
	flag.Usage = helpMessage
	flag.StringVar(&cfgPath, "c", "", "config path")
	flag.BoolVar(&debugMode, "d", false, "debug mode")
	flag.BoolVar(&showVersion, "v", false, "show version")
	cmdArgs = runner.CreateArgsFlags(flag.CommandLine)
	flag.Parse()
}

func main() {
	if showVersion {
		fmt.Printf("envplace v%s, built with %s\n", version, runtime.Version())
		return
	}

	if flag.Arg(0) == "init" {
		configName, err := runner.WriteDefaultConfig()
		if err != nil {
			log.Fatalf("Failed writing default config: %+v", err)
		}
		fmt.Printf("%s file created to the current directory with the default settings\n", configName)
		return
	}

	if debugMode {
		fmt.Println("[debug] mode")
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	r, err := runner.NewEngine(cfgPath, cmdArgs, debugMode)
	if err != nil {
		log.Fatal(err)
		return
	}
	go func() {
		<-sigs
		r.Stop()
	}()

	defer func() {
		if e := recover(); e != nil {
			log.Fatalf("PANIC: %+v", e)
		}
	}()

	r.Run()
}
