package main

import (
	"fmt"
	"os"

	"idpgo/internal/textfmt"
)

func loadDocument(path string) (*textfmt.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("idpgo: read %s: %w", path, err)
	}
	doc, err := textfmt.ParseDocument(string(data))
	if err != nil {
		return nil, fmt.Errorf("idpgo: parse %s: %w", path, err)
	}
	return doc, nil
}
