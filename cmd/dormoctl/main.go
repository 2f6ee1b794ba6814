// Package main is the entry point for the dormoctl client.
package main

import "github.com/mcoot/dormo/internal/cli"

func main() {
	cli.Execute()
}
