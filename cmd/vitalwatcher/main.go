package main

import (
	"incubator-alerts/internal/cli"
)

func main() {
	cli.Execute()
}
