// Command visualgate verifies rendered UI components against design
// screenshots.
package main

import (
	"os"

	"github.com/kamilpajak/visualgate/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
