package main

import "github.com/junian/homebrew-dotnet/cmd/update-casks/cmd"

func main() {
	cmd.Execute()
}
