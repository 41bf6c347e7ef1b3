package main

import (
	"github.com/luma/ovpnctl/cmd"
)

func main() {
	cmd.Execute()
}
