// Command execgate is the deterministic execution gate's command-line
// entry point.
package main

import "github.com/sentinelgate/execgate/cmd/execgate/cmd"

func main() {
	cmd.Execute()
}
