package main

import "github.com/Wyydra/geosync/internal/cli"

func main() {
	cli.Execute()
}
