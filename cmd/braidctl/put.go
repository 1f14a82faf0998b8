package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var putCmd = &cobra.Command{
	Use:   "put <key> <value>",
	Short: "Write a document's value",
	Args:  cobra.ExactArgs(2),
	RunE:  runPut,
}

func runPut(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	v, err := c.Put(ctx, args[0], []byte(args[1]))
	if err != nil {
		return err
	}
	fmt.Printf("%s/%d\n", v.Agent, v.Seq)
	return nil
}
