// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package consumers

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"

	"github.com/relabs-tech/head_tracker/internal/orientation"
	"github.com/relabs-tech/head_tracker/internal/pipeline"
)

// Screen is the drawing surface of an OLED panel; *ssd1306.Dev satisfies it.
type Screen interface {
	Bounds() image.Rectangle
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
}

// Display shows the latest pose and status on a 128x64 OLED. Samples only
// update the stored pose; Run redraws at a fixed interval when something
// changed.
type Display struct {
	screen   Screen
	interval time.Duration

	mu     sync.Mutex
	pose   orientation.Pose
	have   bool
	status pipeline.Status
	dirty  bool
}

func NewDisplay(screen Screen, interval time.Duration) *Display {
	return &Display{screen: screen, interval: interval, dirty: true}
}

func (d *Display) ReceiveOrientation(t orientation.Transform) {
	p := orientation.PoseFromTransform(t)
	d.mu.Lock()
	d.pose, d.have, d.dirty = p, true, true
	d.mu.Unlock()
}

func (d *Display) StatusChanged(s pipeline.Status) {
	d.mu.Lock()
	d.status, d.dirty = s, true
	d.mu.Unlock()
}

// Run shows the splash screen, then redraws until ctx is done.
func (d *Display) Run(ctx context.Context) error {
	if err := d.draw(RenderSplash()); err != nil {
		Logf("display: error showing splash: %v", err)
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	Logf("display: starting update loop")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := d.refresh(); err != nil {
				Logf("display: error updating display: %v", err)
			}
		}
	}
}

func (d *Display) refresh() error {
	d.mu.Lock()
	if !d.dirty {
		d.mu.Unlock()
		return nil
	}
	pose, have, status := d.pose, d.have, d.status
	d.dirty = false
	d.mu.Unlock()

	return d.draw(RenderReadout(pose, have, status))
}

func (d *Display) draw(img image.Image) error {
	return d.screen.Draw(d.screen.Bounds(), img, image.Point{})
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

// RenderReadout draws roll, pitch, yaw and the connection state.
func RenderReadout(pose orientation.Pose, have bool, status pipeline.Status) *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	if !have {
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString("Head tracker")
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString("Waiting...")
	} else {
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawString(fmt.Sprintf("R: %6.1f", pose.Roll))
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString(fmt.Sprintf("P: %6.1f", pose.Pitch))
		drawer.Dot = fixed.P(0, 39)
		drawer.DrawString(fmt.Sprintf("Y: %6.1f", pose.Yaw))
	}

	drawer.Dot = fixed.P(0, 58)
	drawer.DrawString(status.State.String())
	return img
}

func RenderSplash() *image1bit.VerticalLSB {
	img, drawer := newCanvas()
	drawer.Dot = fixed.P(10, 26)
	drawer.DrawString("Head Tracker")
	drawer.Dot = fixed.P(10, 43)
	drawer.DrawString("Look ahead")
	return img
}
