// Command hackorsnooze はHack or Snoozeのクライアントとリファレンスサーバーを1つにまとめたCLI。
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/hackorsnooze/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
