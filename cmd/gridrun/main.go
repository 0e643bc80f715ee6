package main

import "github.com/mediseg/gridrun/cmd/gridrun/cmd"

func main() {
	cmd.Execute()
}
