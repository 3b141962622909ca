// The riskgen CLI regenerates the crime heatmap and risk polygon
// snapshots consumed by the API server, either once or on a cron
// schedule.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
