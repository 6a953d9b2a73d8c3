package main

import "scenereel/internal/cli"

func main() {
	cli.Execute()
}
