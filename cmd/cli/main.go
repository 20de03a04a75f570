package main

import (
	"github.com/mchmarny/riskview/pkg/cli"
)

func main() {
	cli.Execute()
}
