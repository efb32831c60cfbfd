package main

import "github.com/zimcoin/ledger/app/wallet/cli/cmd"

func main() {
	cmd.Execute()
}
