package main

import (
	"os"

	"github.com/msto63/dolmetscher/cmd/dolmetscher/cmd"
	"github.com/msto63/dolmetscher/internal/hotkey"
)

func main() {
	code := 0
	hotkey.RunOnMainThread(func() {
		if err := cmd.Execute(); err != nil {
			code = 1
		}
	})
	os.Exit(code)
}
