package main

import "github.com/hmcts/sscs-tribunals-case-api-sub001/cmd/fixturectl/cmd"

func main() {
	cmd.Execute()
}
