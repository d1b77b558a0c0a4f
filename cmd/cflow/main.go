// Package main implements the cflow CLI.
// It builds control flow graphs and def-use paths for C source files and
// prints them as text, JSON, msgpack or Graphviz DOT.
package main

import (
	"os"

	"github.com/l3aro/go-cflow/cmd/cflow/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.Version = version
	commands.RootCmd.SetVersionTemplate(`cflow version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
