package provision

import "github.com/osvaldoandrade/provision/internal/cli"

// Execute runs the provision CLI entrypoint.
func Execute() int {
	return cli.Execute()
}
