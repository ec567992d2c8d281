package main

import "github.com/funvibe/diffsmith/pkg/cli"

func main() {
	cli.Run()
}
