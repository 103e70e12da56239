package main

import "github.com/mcoot/miniapp-session/internal/cli"

func main() {
	cli.Execute()
}
