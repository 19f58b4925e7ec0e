package main

import (
	"github.com/Paintersrp/procsup/internal/cli"
	"github.com/Paintersrp/procsup/internal/metrics"
)

func main() {
	metrics.EmitBuildInfo()
	cli.Execute()
}
