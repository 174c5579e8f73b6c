package main

import (
	"fmt"
	"os"
)

func main() {
	app, err := newApp()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer app.close()

	if err := newRootCommand(app).Execute(); err != nil {
		os.Exit(1)
	}
}
