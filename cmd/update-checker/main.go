package main

import "github.com/storage-plugins/tailscale-updater/cmd/update-checker/cmd"

func main() {
	cmd.Execute()
}
