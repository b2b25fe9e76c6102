// Command episim runs the agent-based epidemic simulator.
package main

import "github.com/episim/episim/cmd"

func main() {
	cmd.Execute()
}
