package main

import "github.com/hqc-securechain/qrisk/cmd/qrisk"

func main() {
	qrisk.Execute()
}
