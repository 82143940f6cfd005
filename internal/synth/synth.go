// Package synth generates the runtime text of the virtual module from the
// aggregate export set. Output is a pure function of its inputs: the same
// items, env vars, and strategy always produce byte-identical text.
package synth

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/EnoughXP/triggerkit/internal/config"
	"github.com/EnoughXP/triggerkit/internal/extract"
)

const header = "// Code generated by triggerkit. DO NOT EDIT.\n"

// MetadataExportName is the name of the aggregate introspection object the
// module exports alongside the re-exports.
const MetadataExportName = "__triggerkitExports"

// Synthesize renders the virtual module for the given ordered aggregate
// export set. Items and env vars must already be deduplicated against each
// other; a name bound twice here is an internal invariant violation and
// surfaces as an error. Every emitted binding name is unique: an env var, a
// re-export, and a bucket can never share a name in the output.
func Synthesize(items []*extract.Item, envVars []string, strategy config.Strategy) (string, error) {
	if err := checkUnique(items, envVars); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")

	writeEnvBindings(&b, envVars)
	writeReexports(&b, items)

	if strategy.Mode == config.ModeGrouped || strategy.Mode == config.ModeMixed {
		writeBuckets(&b, items, envVars, strategy)
	}

	if err := writeMetadata(&b, items); err != nil {
		return "", err
	}

	return b.String(), nil
}

func checkUnique(items []*extract.Item, envVars []string) error {
	seen := make(map[string]string, len(items)+len(envVars))
	for _, name := range envVars {
		if prev, ok := seen[name]; ok {
			return fmt.Errorf("duplicate env binding %q (already bound by %s) reached synthesis", name, prev)
		}
		seen[name] = "process.env"
	}
	for _, item := range items {
		if prev, ok := seen[item.Name]; ok {
			return fmt.Errorf("duplicate export %q from %s and %s reached synthesis", item.Name, prev, item.File)
		}
		seen[item.Name] = item.File
	}
	return nil
}

// writeEnvBindings emits discovered environment variables first, each bound
// to its original identifier name via a direct process.env read.
func writeEnvBindings(b *strings.Builder, envVars []string) {
	if len(envVars) == 0 {
		return
	}
	b.WriteString("const { ")
	b.WriteString(strings.Join(envVars, ", "))
	b.WriteString(" } = process.env;\n")
	b.WriteString("export { ")
	b.WriteString(strings.Join(envVars, ", "))
	b.WriteString(" };\n\n")
}

// writeReexports emits one import plus one re-export statement per declaring
// file, in aggregate (file-lexical, then discovery) order.
func writeReexports(b *strings.Builder, items []*extract.Item) {
	for _, group := range groupByFile(items) {
		names := make([]string, len(group.items))
		for i, item := range group.items {
			names[i] = item.Name
		}
		fmt.Fprintf(b, "import { %s } from '%s';\n", strings.Join(names, ", "), group.file)
		fmt.Fprintf(b, "export { %s };\n", strings.Join(names, ", "))
	}
	if len(items) > 0 {
		b.WriteString("\n")
	}
}

type fileGroup struct {
	file  string
	items []*extract.Item
}

// groupByFile buckets items by declaring file, preserving aggregate order.
func groupByFile(items []*extract.Item) []fileGroup {
	var order []string
	byFile := map[string]*fileGroup{}
	for _, item := range items {
		g, ok := byFile[item.File]
		if !ok {
			g = &fileGroup{file: item.File}
			byFile[item.File] = g
			order = append(order, item.File)
		}
		g.items = append(g.items, item)
	}
	out := make([]fileGroup, len(order))
	for i, file := range order {
		out[i] = *byFile[file]
	}
	return out
}

func writeBuckets(b *strings.Builder, items []*extract.Item, envVars []string, strategy config.Strategy) {
	buckets := Buckets(items, envVars, strategy)
	for _, bk := range buckets {
		fmt.Fprintf(b, "export const %s = { %s };\n", bk.Name, strings.Join(bk.Members, ", "))
	}
	if len(buckets) > 0 {
		b.WriteString("\n")
	}
}

// Bucket is a namespace object derived from a declaring file or folder.
type Bucket struct {
	Name    string
	Members []string
}

// Buckets derives the namespace buckets for the grouped and mixed
// strategies, in aggregate order. A bucket whose identifier collides with a
// flat export or env binding is dropped entirely rather than emitted as a
// second binding of the same name; its members remain reachable as flat
// exports.
func Buckets(items []*extract.Item, envVars []string, strategy config.Strategy) []Bucket {
	taken := make(map[string]bool, len(items)+len(envVars))
	for _, name := range envVars {
		taken[name] = true
	}
	for _, item := range items {
		taken[item.Name] = true
	}

	var order []string
	byName := map[string]*Bucket{}
	for _, item := range items {
		key := BucketKey(item.File, strategy)
		if taken[key] {
			continue
		}
		bk, ok := byName[key]
		if !ok {
			bk = &Bucket{Name: key}
			byName[key] = bk
			order = append(order, key)
		}
		bk.Members = append(bk.Members, item.Name)
	}

	out := make([]Bucket, len(order))
	for i, key := range order {
		out[i] = *byName[key]
	}
	return out
}

// BucketKey derives the bucket identifier for a declaring file under the
// configured grouping. Colliding sanitized keys merge into one bucket.
func BucketKey(file string, strategy config.Strategy) string {
	var key string
	switch strategy.GroupBy {
	case config.GroupByFolder:
		key = filepath.Base(filepath.Dir(file))
	default:
		base := filepath.Base(file)
		key = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if strategy.GroupPrefix != "" {
		key = strategy.GroupPrefix + "_" + key
	}
	return sanitizeIdentifier(key)
}

func sanitizeIdentifier(s string) string {
	var b strings.Builder
	for i, r := range s {
		valid := r == '_' || r == '$' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9' && i > 0)
		if valid {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

// metaRecord is the introspection payload per export. Field order is fixed
// by the struct, which keeps the rendered metadata stable.
type metaRecord struct {
	Kind         extract.Kind       `json:"kind"`
	File         string             `json:"file"`
	OriginalName string             `json:"originalName"`
	Doc          string             `json:"doc,omitempty"`
	TypeParams   string             `json:"typeParams,omitempty"`
	IsAsync      bool               `json:"isAsync,omitempty"`
	Params       []extract.Param    `json:"params,omitempty"`
	ReturnType   string             `json:"returnType,omitempty"`
	CtorParams   []extract.Param    `json:"ctorParams,omitempty"`
	Methods      []extract.Method   `json:"methods,omitempty"`
	Properties   []extract.Property `json:"properties,omitempty"`
	Extends      string             `json:"extends,omitempty"`
	Implements   string             `json:"implements,omitempty"`
	ConstType    string             `json:"constType,omitempty"`
	Placeholder  bool               `json:"placeholder,omitempty"`
}

func writeMetadata(b *strings.Builder, items []*extract.Item) error {
	fmt.Fprintf(b, "export const %s = {\n", MetadataExportName)
	for _, item := range items {
		record := metaRecord{
			Kind:         item.Kind,
			File:         item.File,
			OriginalName: item.OriginalName,
			Doc:          item.Doc,
			ConstType:    item.ConstType,
			Placeholder:  item.Placeholder,
		}
		if item.Func != nil {
			record.TypeParams = item.Func.TypeParams
			record.IsAsync = item.Func.IsAsync
			record.Params = item.Func.Params
			record.ReturnType = item.Func.ReturnType
		}
		if item.Class != nil {
			record.TypeParams = item.Class.TypeParams
			record.CtorParams = item.Class.CtorParams
			record.Methods = item.Class.Methods
			record.Properties = item.Class.Properties
			record.Extends = item.Class.Extends
			record.Implements = item.Class.Implements
		}

		payload, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("encoding metadata for %q: %w", item.Name, err)
		}
		fmt.Fprintf(b, "  %q: %s,\n", item.Name, payload)
	}
	b.WriteString("};\n")
	return nil
}
