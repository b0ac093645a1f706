package main

import "github.com/kirillkom/cameroon-legal-assistant/internal/cli"

var version = "dev"

func main() {
	if err := cli.Execute(version); err != nil {
		cli.Fail(err)
	}
}
