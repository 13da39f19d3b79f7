package main

import "github.com/funvibe/clox/pkg/cli"

func main() {
	cli.Run()
}
