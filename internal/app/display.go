package app

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/head_tracker/internal/config"
	"github.com/relabs-tech/head_tracker/internal/consumers"
)

// ssd1306DriverAddr is the address the ssd1306 driver always talks to.
const ssd1306DriverAddr = 0x3C

// addressedBus sends the driver's traffic to a module strapped to another
// address (SA0 high puts the SSD1306 at 0x3D).
type addressedBus struct {
	i2c.Bus
	addr uint16
}

func (b *addressedBus) Tx(addr uint16, w, r []byte) error {
	if addr == ssd1306DriverAddr {
		addr = b.addr
	}
	return b.Bus.Tx(addr, w, r)
}

// newSSD1306 initializes a 128x64 SSD1306 at addr on bus.
func newSSD1306(bus i2c.Bus, addr uint16) (*ssd1306.Dev, error) {
	if addr != ssd1306DriverAddr {
		bus = &addressedBus{Bus: bus, addr: addr}
	}
	return ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
}

// openDisplay brings up the SSD1306 OLED on the default I2C bus. The bus
// stays open for the life of the process.
func openDisplay(cfg *config.Config) (*consumers.Display, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}

	dev, err := newSSD1306(bus, cfg.DisplayI2CAddr)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Printf("display: initialized at 0x%02X", cfg.DisplayI2CAddr)

	return consumers.NewDisplay(dev, cfg.DisplayEvery()), nil
}
