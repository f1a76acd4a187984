package main

import (
	"os"

	paideiacmder "github.com/paideialabs/paideia/cmd/paideia"
)

func main() {
	cmd := paideiacmder.NewPaideiaCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
