// Command schemas writes the JSON Schema of every variant payload.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/uniedit/videogen/internal/module/provider"
)

func main() {
	out := flag.String("out", "api/schemas", "output directory")
	flag.Parse()

	if err := os.MkdirAll(*out, 0o755); err != nil {
		log.Fatalf("create %s: %v", *out, err)
	}
	for _, v := range provider.Catalog() {
		data, err := json.MarshalIndent(v.Schema(), "", "  ")
		if err != nil {
			log.Fatalf("marshal %s: %v", v.Name, err)
		}
		path := filepath.Join(*out, v.Name+".json")
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			log.Fatalf("write %s: %v", path, err)
		}
		log.Printf("%s -> %s", v.Name, path)
	}
}
