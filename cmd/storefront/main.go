package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"

	"github.com/goliatone/go-storefront/internal/cli"
)

var version = "dev"

func main() {
	if err := fang.Execute(
		context.Background(),
		cli.NewRootCmd(),
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(1)
	}
}
