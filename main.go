package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/TFMV/treewalk/cmd"
	"github.com/TFMV/treewalk/walk"
)

func main() {
	// Set up a deferred function to recover from panics.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v", r)
			os.Exit(1)
		}
	}()

	if err := cmd.Execute(); err != nil {
		// A consumer closing the output stream aborts the run without a
		// message; everything else is reported before the failure status.
		if !errors.Is(err, walk.ErrClosedPipe) {
			fmt.Fprintf(os.Stderr, "treewalk: %v\n", err)
		}
		os.Exit(1)
	}
}
