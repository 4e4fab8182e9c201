package main

import "github.com/ambercast/relay/relayd"

func main() {
	relayd.RootCmd.Execute()
}
