package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <key>",
	Short: "Stream a document's change events until interrupted",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	evCh, err := c.Watch(ctx, args[0])
	if err != nil {
		return err
	}
	for ev := range evCh {
		fmt.Printf("order=%d direction=%s values=%d\n", ev.Order, ev.Direction, len(ev.Values))
	}
	return nil
}
