package main

import "localize-from-source/internal/cli"

func main() {
	cli.Execute()
}
