package main

import "castflow/cmd/cli"

func main() {
	cli.Execute()
}
