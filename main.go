// main is the entry point for the cpkwatch CLI.
package main

import (
	"github.com/huangsam/cpkwatch/cmd"
	"github.com/huangsam/cpkwatch/internal/contract"
	"github.com/huangsam/cpkwatch/internal/iocache"
)

func main() {
	defer iocache.CloseCaching()
	defer func() {
		if err := cmd.StopProfiling(); err != nil {
			contract.LogWarn("Failed to stop profiling", err)
		}
	}()

	if err := cmd.Execute(); err != nil {
		iocache.CloseCaching()
		contract.LogFatal("Error running cpkwatch", err)
	}
}
