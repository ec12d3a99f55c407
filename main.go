package main

import "github.com/ammiranda/treepath/cli"

func main() {
	cli.Execute()
}
