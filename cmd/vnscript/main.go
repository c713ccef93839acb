package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/zurustar/vnscript/pkg/app"
)

//go:embed demo
var demo embed.FS

func main() {
	application := app.New(demo)
	if err := application.Run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
