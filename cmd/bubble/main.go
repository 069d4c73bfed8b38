package main

import "github.com/mcoot/bubble/internal/cli"

func main() {
	cli.Execute()
}
