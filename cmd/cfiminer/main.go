// Command cfiminer runs the closed-frequent-itemset sliding-window
// mining service: mine a configured set of transaction sources, and
// optionally serve a live dashboard over the running service.
package main

import (
	"github.com/cfiminer/miner/cmd/cfiminer/cmd"
)

func main() {
	cmd.Execute()
}
