// Command policygen compiles a policy TOML document into a Go source
// file whose init() overwrites policy.Default, so the boot image carries its
// resource limits as a link-time constant instead of parsing TOML at
// boot. policy.Load (the same decoder this tool uses) stays available
// for tests and any host tool that wants runtime overrides.
package main

import (
	"fmt"
	"log"
	"os"

	"aethelos/policy"
)

func usage(me string) {
	fmt.Printf("%s <policy.toml> <output.go>\n", me)
	os.Exit(1)
}

func main() {
	if len(os.Args) != 3 {
		usage(os.Args[0])
	}
	in, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatal(err)
	}
	defer in.Close()

	limits, err := policy.Load(in)
	if err != nil {
		log.Fatalf("parsing %s: %v", os.Args[1], err)
	}

	out, err := os.Create(os.Args[2])
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	if err := writeLiteral(out, limits); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("wrote %s\n", os.Args[2])
}

func writeLiteral(out *os.File, l policy.Limits) error {
	_, err := fmt.Fprintf(out, `// Code generated by cmd/policygen. DO NOT EDIT.

package policy

func init() {
	Default = Limits{
		MaxVessels:       %d,
		UserStackPages:   %d,
		KernelStackPages: %d,
		GuardPages:       %d,
		MaxCapabilities:  %d,

		QuantumTicks:      %d,
		PreemptionEnabled: %t,
		ManaPoolPages:     %d,
		KASLREntropyBits:  %d,
	}
}
`,
		l.MaxVessels, l.UserStackPages, l.KernelStackPages, l.GuardPages, l.MaxCapabilities,
		l.QuantumTicks, l.PreemptionEnabled, l.ManaPoolPages, l.KASLREntropyBits)
	return err
}
