package main

import "github.com/bkv-project/bKV/cmd"

func main() {
	cmd.Execute()
}
