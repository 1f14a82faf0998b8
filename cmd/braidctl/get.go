package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/braidhq/braiddb/pkg/client"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Read a document's current value(s)",
	Args:  cobra.ExactArgs(1),
	RunE:  runGet,
}

func runGet(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	val, err := c.Get(ctx, args[0])
	if err == nil {
		fmt.Println(string(val))
		return nil
	}

	if _, ok := err.(*client.ErrConflict); !ok {
		return err
	}

	entries, err := c.GetConflict(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%q has %d concurrent values:\n", args[0], len(entries))
	for _, e := range entries {
		fmt.Printf("  %s/%d: %s\n", e.Version.Agent, e.Version.Seq, e.Value)
	}
	return nil
}
