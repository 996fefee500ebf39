package main

import (
	"os"

	"ensembled/internal/ctl"
)

func main() {
	os.Exit(ctl.Main())
}
