// Renders firestore.rules from the policy file. The output is committed
// and deployed with the app, so run this after every policy change.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/firegate-io/firegate/policy"
	"github.com/firegate-io/firegate/rules"
)

func main() {
	policyPtr := flag.String("policy", "policy.yaml", "policy file")
	outPtr := flag.String("out", "firestore.rules", "output file, - for stdout")
	flag.Parse()

	rs, err := policy.Load(*policyPtr)
	if err != nil {
		log.Fatalf("failed to load policy: %v", err)
	}

	out, err := rules.Render(rs)
	if err != nil {
		log.Fatalf("failed to render rules: %v", err)
	}

	if *outPtr == "-" {
		os.Stdout.WriteString(out)
		return
	}
	if err := os.WriteFile(*outPtr, []byte(out), 0o644); err != nil {
		log.Fatalf("failed to write %s: %v", *outPtr, err)
	}
	log.Printf("wrote %s", *outPtr)
}
