// The main package for the upc-harvester executable.
package main

import "github.com/pmercier/upc-harvester/cmd"

func main() {
	cmd.Execute()
}
