package main

import "keyrelay/internal/cli"

func main() {
	cli.Execute()
}
