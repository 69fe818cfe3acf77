package main

import (
	"os"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
