package main

import "github.com/javi11/trackmount/cmd/trackmount/cmd"

func main() {
	cmd.Execute()
}
