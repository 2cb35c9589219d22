// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/head_tracker/internal/audio"
	"github.com/relabs-tech/head_tracker/internal/calibration"
	"github.com/relabs-tech/head_tracker/internal/config"
	"github.com/relabs-tech/head_tracker/internal/consumers"
	"github.com/relabs-tech/head_tracker/internal/motion"
	"github.com/relabs-tech/head_tracker/internal/pipeline"
)

const keyHelp = "keys: r = recalibrate, c = clear calibration, q = quit"

// lockedWriter serializes writes from the readout and the key loop.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// readKeys turns console lines into calibration commands until in is
// exhausted or the user asks to quit.
func readKeys(in io.Reader, out io.Writer, sink consumers.CommandSink, quit func()) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "r", "recalibrate":
			sink.Submit(calibration.Recalibrate)
			fmt.Fprintln(out, "> recalibrate requested")
		case "c", "clear":
			sink.Submit(calibration.ClearCalibration)
			fmt.Fprintln(out, "> clear calibration requested")
		case "q", "quit":
			quit()
			return
		case "":
		default:
			fmt.Fprintln(out, keyHelp)
		}
	}
}

// RunMockConsole runs the whole pipeline in-process on the mock source and
// prints the readout to out. Calibration is driven from in.
func RunMockConsole(ctx context.Context, in io.Reader, out io.Writer) error {
	cfg := config.Get()
	if cfg == nil {
		cfg = config.Default()
	}
	out = &lockedWriter{w: out}

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	q := pipeline.NewQueue()
	defer q.Close()

	listener := audio.Open(nil, audio.DefaultSourcePosition)
	defer listener.Close()

	local := *cfg
	local.ReadoutEnabled = true
	registerLocalConsumers(p, &local, listener, out)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(out, keyHelp)
	go readKeys(in, out, p, cancel)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return streamSource(ctx, motion.NewMockSource(cfg.SampleEvery()), q) })
	g.Go(func() error { return ignoreCanceled(p.Run(ctx, q)) })
	return g.Wait()
}
