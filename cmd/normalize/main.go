// Command normalize turns geocoder place results into display addresses and
// form fields, using the same rules as saved locations.
//
// Usage:
//
//	go run ./cmd/normalize places.json
//	curl -s "$PLACES_URL" | jq '.results' | go run ./cmd/normalize -json
//
// Input is a JSON array of place results, or a single place result.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/couchcryptid/outage-alert-service/internal/domain"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("normalize", flag.ContinueOnError)
	asJSON := fs.Bool("json", false, "print normalized addresses as a JSON array")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := stdin
	if fs.NArg() > 1 {
		return fmt.Errorf("expected at most one input file, got %d", fs.NArg())
	}
	if fs.NArg() == 1 && fs.Arg(0) != "-" {
		f, err := os.Open(fs.Arg(0))
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	places, err := readPlaces(in)
	if err != nil {
		return err
	}

	out := make([]domain.NormalizedAddress, 0, len(places))
	for _, p := range places {
		out = append(out, domain.NormalizeAddress(p))
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	for _, n := range out {
		if _, err := fmt.Fprintln(stdout, n.Address); err != nil {
			return err
		}
	}
	return nil
}

func readPlaces(r io.Reader) ([]domain.PlaceResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	if data[0] == '{' {
		var p domain.PlaceResult
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("parse place result: %w", err)
		}
		return []domain.PlaceResult{p}, nil
	}
	var places []domain.PlaceResult
	if err := json.Unmarshal(data, &places); err != nil {
		return nil, fmt.Errorf("parse place results: %w", err)
	}
	return places, nil
}
