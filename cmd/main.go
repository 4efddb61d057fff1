package main

import (
	"os"

	"github.com/mindflow-live/mindflow/cmd/mindflow"
)

func main() {
	if err := mindflow.Execute(); err != nil {
		os.Exit(1)
	}
}
