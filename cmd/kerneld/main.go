// Command kerneld hosts a kernel.Kernel behind the diagnostic shell, reading
// commands from stdin until EOF.
package main

import (
	"flag"
	"os"

	"github.com/EdmondCharles1/myos-i686/cmd/shell"
	"github.com/EdmondCharles1/myos-i686/kernel"
)

func main() {
	var (
		policyName = flag.String("policy", "rr", "initial scheduling policy: fcfs|rr|priority|sjf|srtf|mlfq")
		hz         = flag.Int("hz", 100, "real clock tick frequency in Hz; 0 runs a manual clock")
		verbose    = flag.Bool("v", false, "log kernel diagnostics to stderr")
	)
	flag.Parse()

	policy, ok := kernel.ParsePolicy(*policyName)
	if !ok {
		os.Stderr.WriteString("kerneld: unknown -policy value\n")
		os.Exit(2)
	}

	opts := []kernel.Option{kernel.WithPolicy(policy)}
	if *verbose {
		opts = append(opts, kernel.WithLogger(kernel.NewLogifaceLogger(os.Stderr, kernel.LevelDebug)))
	}
	var clock *kernel.TickSource
	if *hz > 0 {
		clock = kernel.NewRealClock(*hz)
		opts = append(opts, kernel.WithClock(clock))
	}

	k := kernel.New(opts...)
	if clock != nil {
		clock.Start()
		defer clock.Stop()
	}
	sh := shell.New(k, os.Stdout)
	if err := sh.Run(os.Stdin); err != nil {
		os.Stderr.WriteString("kerneld: " + err.Error() + "\n")
		os.Exit(1)
	}
}
