package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Bulk-load documents from a YAML file",
	Long: `Apply a flat YAML mapping of document key to value, PUTting each
entry in the order it appears in the file.

Example:
  # docs.yaml
  greeting: hello
  count: "1"

  braidctl apply -f docs.yaml`,
	RunE: runApply,
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

func runApply(cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	var docs yaml.Node
	if err := yaml.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("parsing %s: %w", filename, err)
	}
	entries, err := flattenMapping(&docs)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", filename, err)
	}

	c, err := newClient(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, e := range entries {
		v, err := c.Put(ctx, e.key, []byte(e.value))
		if err != nil {
			return fmt.Errorf("putting %q: %w", e.key, err)
		}
		fmt.Printf("✓ %s -> %s/%d\n", e.key, v.Agent, v.Seq)
	}
	return nil
}

type kv struct{ key, value string }

// flattenMapping walks the document root (a single top-level mapping) and
// returns its entries in file order, preserving order the way a plain
// map[string]string decode would not.
func flattenMapping(root *yaml.Node) ([]kv, error) {
	doc := root
	if doc.Kind == yaml.DocumentNode {
		if len(doc.Content) == 0 {
			return nil, nil
		}
		doc = doc.Content[0]
	}
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("root must be a mapping of key: value")
	}

	entries := make([]kv, 0, len(doc.Content)/2)
	for i := 0; i+1 < len(doc.Content); i += 2 {
		entries = append(entries, kv{key: doc.Content[i].Value, value: doc.Content[i+1].Value})
	}
	return entries, nil
}
