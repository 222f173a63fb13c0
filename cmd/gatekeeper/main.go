// Command gatekeeper is the entry point for discourse-gatekeeper: it just
// hands off to the cobra command tree in the cmd package.
package main

import "github.com/canonical/discourse-gatekeeper/cmd"

func main() {
	cmd.Execute()
}
