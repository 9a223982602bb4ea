package main

import (
	"os"

	"github.com/osvaldoandrade/provision/pkg/provision"
)

func main() {
	os.Exit(provision.Execute())
}
