package main

import (
	"github.com/virus-evolution/gopipe/cmd"
)

func main() {
	cmd.Execute()
}
