package main

import "github.com/stagedoor-labs/kiosk-payments/cmd"

func main() {
	cmd.Execute()
}
