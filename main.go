package main

import "github.com/kozaktomas/xiangxin/cmd"

func main() {
	cmd.Execute()
}
