package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ioprotolab/simhub/internal/capture"
	"github.com/ioprotolab/simhub/internal/record"
	"github.com/ioprotolab/simhub/internal/replay"
)

var replayFile string
var replayMode string

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a recorded session file, printing each packet as it fires",
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVar(&replayFile, "file", "", "Recorded session file (JSON array of packets, as exported by a recording session)")
	replayCmd.Flags().StringVar(&replayMode, "mode", string(replay.ModeNormal), "normal|fast|slow|loop")
	_ = replayCmd.MarkFlagRequired("file")
}

func runReplay(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(replayFile)
	if err != nil {
		return fmt.Errorf("read recording file: %w", err)
	}

	var packets []record.RecordedPacket
	if err := json.Unmarshal(data, &packets); err != nil {
		return fmt.Errorf("parse recording file: %w", err)
	}
	if len(packets) == 0 {
		return fmt.Errorf("recording file contains no packets")
	}

	bus := capture.NewBus()
	sub, unsub := bus.Subscribe(len(packets) + 1)
	defer unsub()

	go func() {
		for evt := range sub {
			fmt.Printf("[%s] %s %s:%d -> %s:%d  %s\n",
				evt.Timestamp.Format(time.RFC3339Nano), evt.Protocol,
				evt.SrcAddr, evt.SrcPort, evt.DstAddr, evt.DstPort, evt.Info)
		}
	}()

	player := replay.NewReplayer(bus, packets, replay.Mode(replayMode))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := player.Run(ctx); err != nil {
		return err
	}

	current, total, _ := player.Progress()
	fmt.Printf("replay complete: %d/%d packets delivered\n", current, total)
	return nil
}
