// gltftool is a CLI utility for inspecting and unpacking glTF 2.0 files.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/Faultbox/gltfimport/internal/config"
	"github.com/Faultbox/gltfimport/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "meshes", "ls":
		err = cmdMeshes(ctx, args)
	case "images":
		err = cmdImages(ctx, args)
	case "extract", "x":
		err = cmdExtract(ctx, args)
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`gltftool - glTF 2.0 payload utility

Usage:
  gltftool <command> [options] <file.gltf|file.glb>

Commands:
  info     Show document and payload summary
  meshes   Extract every primitive and list vertex data
  images   List images with their decoded format and size
  extract  Write image payloads to a directory
  config   Print the effective config (-save, -save-to <path> to write it)

Options (all commands):
  -config <path>   Config file (default ./gltfimport.yaml or user config dir)
  -debug           Enable debug logging
  -workers <n>     Primitives extracted in parallel (0 = one per CPU)
  -images=false    Skip image payloads
  -out <dir>       Directory for extracted images

Examples:
  gltftool info scene.gltf
  gltftool meshes -workers 4 model.glb
  gltftool extract -out ./textures model.glb
  gltftool config -workers 4 -save`)
}

// setup parses the shared flags, loads config and starts logging. It returns
// the positional file argument.
func setup(name string, args []string) (*config.Config, string, error) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		return nil, "", fmt.Errorf("usage: gltftool %s [options] <file.gltf|file.glb>", name)
	}

	cfg, err := config.Load(flags)
	if err != nil {
		return nil, "", err
	}
	if err := logger.Init(cfg.Logging); err != nil {
		return nil, "", fmt.Errorf("initializing logger: %w", err)
	}
	return cfg, fs.Arg(0), nil
}
