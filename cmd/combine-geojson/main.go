package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/EmpoweredVote/ClientMap-Backend/internal/logging"
	"github.com/EmpoweredVote/ClientMap-Backend/internal/regions"
)

// Merges one <AREA>.geojson file per postcode area into a single
// FeatureCollection tagged with postcodeInitials.
func main() {
	dir := flag.String("dir", "./assets/postcodes", "Directory of per-area .geojson files")
	out := flag.String("out", "./assets/combined.geojson", "Output FeatureCollection path")
	flag.Parse()

	log := logging.Init(false)
	defer log.Sync()

	fc, err := regions.CombineDir(*dir, log)
	if err != nil {
		fatalf("combine %s: %v", *dir, err)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		fatalf("encode: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		fatalf("create output dir: %v", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		fatalf("write %s: %v", *out, err)
	}
	fmt.Printf("Wrote %d features to %s\n", len(fc.Features), *out)
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
