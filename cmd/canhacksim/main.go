/*------------------------------------------------------------------
 *
 * Purpose:	Command-line demo of the canhack engine against a
 *		simulated CAN bus: builds a frame from flags, transmits it
 *		with the usual SOF-detection and retry logic, and reports
 *		whether it went out clean.
 *
 *------------------------------------------------------------------*/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/canislabs/gocanhack/canhack"
	"github.com/canislabs/gocanhack/config"
	"github.com/canislabs/gocanhack/hal/sim"
)

func main() {
	var (
		idA     = pflag.Uint32("id", 0x123, "11-bit arbitration identifier")
		dlc     = pflag.Uint32("dlc", 8, "data length code (0-15)")
		fd      = pflag.Bool("fd", false, "encode as a CAN FD frame")
		brs     = pflag.Bool("brs", false, "set the bit-rate-switch flag (requires --fd)")
		retries = pflag.Uint32("retries", 3, "arbitration-loss retry budget")
	)
	// --verbose/-v is registered once, by config.RegisterFlags below; read
	// it back via flags.Verbose rather than registering it a second time
	// (pflag.AddFlag panics on a redefined flag name).
	flags := config.RegisterFlags(pflag.CommandLine)
	pflag.Parse()

	if flags.Verbose {
		canhack.Logf(canhack.SeverityDebug, "verbose logging enabled")
	}

	dev, err := flags.Resolve()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	canhack.Logf(canhack.SeverityInfo, "using device profile: chip=%s tx=%d rx=%d", dev.Chip, dev.TXLine, dev.RXLine)

	bus := sim.NewBus()
	self := sim.NewNode(bus)
	self.SetAutoAdvance(true) // no external driver; the engine is the only caller of Now()

	timing := config.DefaultTimingFor500k1M.ToEngineTiming()
	engine := canhack.New(self, self, timing)

	data := make([]byte, 64)
	for i := range data {
		data[i] = byte(i)
	}
	engine.SetFrame(canhack.Frame1, *idA, 0, false, false, *dlc, data, *fd, *brs, false)

	engine.SetTimeout(1 << 20)
	ok := engine.SendFrame(*retries, false)

	f := engine.GetFrame(canhack.Frame1)
	if ok {
		fmt.Printf("sent frame id=%#x dlc=%d fd=%v brs=%v (%d bits on the wire)\n", *idA, *dlc, *fd, *brs, f.TxBits)
	} else {
		fmt.Println("send failed (timeout or retry budget exhausted)")
		os.Exit(1)
	}
}
