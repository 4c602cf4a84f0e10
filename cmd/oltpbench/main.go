package main

import (
	"github.com/hhkbp2/oltpbench"
	"github.com/hhkbp2/oltpbench/binding"
)

func main() {
	binding.AddBindings()
	oltpbench.Main()
}
