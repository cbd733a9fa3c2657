package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goliatone/go-avrocontract/internal/cli"
)

func main() {
	if err := cli.Execute(context.Background()); err != nil {
		if !errors.Is(err, cli.ErrVerifyFailed) {
			_, _ = fmt.Fprintln(os.Stderr, err.Error())
		}
		os.Exit(1)
	}
}
