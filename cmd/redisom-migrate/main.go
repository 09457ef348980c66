// Command redisom-migrate applies schema (C8) and data (C9) migrations
// against a redisom record-type descriptor file, outside of any specific
// Go application process (spec.md §6.6).
package main

import (
	"fmt"
	"os"
)

func main() {
	err := rootCmd.Execute()
	code := exitCodeFor(err)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}
