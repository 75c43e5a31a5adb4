package main

import (
	"context"
	"os"

	"github.com/quantum-grit/your-sofia/signal-service/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
