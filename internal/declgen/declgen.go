// Package declgen produces the .d.ts companion text for the synthesized
// module. It consumes the same aggregate export set as the synthesizer, so
// the declared names always agree with the runtime module's exports.
package declgen

import (
	"fmt"
	"strings"

	"github.com/EnoughXP/triggerkit/internal/config"
	"github.com/EnoughXP/triggerkit/internal/extract"
	"github.com/EnoughXP/triggerkit/internal/synth"
)

const header = "// Code generated by triggerkit. DO NOT EDIT.\n"

// ExportMapTypeName is the aggregate mapping type covering every exported
// name.
const ExportMapTypeName = "TriggerkitExportMap"

// Emit renders the declaration text for the aggregate export set. Like the
// synthesizer, identical inputs produce byte-identical output.
func Emit(items []*extract.Item, envVars []string, strategy config.Strategy) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")

	declared := make(map[string]bool, len(envVars)+len(items))
	for _, name := range envVars {
		if declared[name] {
			continue
		}
		declared[name] = true
		fmt.Fprintf(&b, "export declare const %s: string;\n", name)
	}
	if len(envVars) > 0 {
		b.WriteString("\n")
	}

	for _, item := range items {
		// A name already declared (an env binding shadowing an export, or a
		// stray duplicate) must not be declared a second time.
		if declared[item.Name] {
			continue
		}
		declared[item.Name] = true
		writeItem(&b, item)
	}

	if strategy.Mode == config.ModeGrouped || strategy.Mode == config.ModeMixed {
		writeBucketDecls(&b, items, envVars, strategy)
	}

	writeExportMap(&b, items)
	return b.String()
}

func writeItem(b *strings.Builder, item *extract.Item) {
	writeDoc(b, item.Doc)
	switch item.Kind {
	case extract.KindFunction:
		writeFunction(b, item)
	case extract.KindClass:
		writeClass(b, item)
	default:
		writeConstant(b, item)
	}
}

func writeDoc(b *strings.Builder, doc string) {
	if doc == "" {
		return
	}
	b.WriteString("/**\n")
	for _, line := range strings.Split(doc, "\n") {
		b.WriteString(" * ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(" */\n")
}

func writeFunction(b *strings.Builder, item *extract.Item) {
	sig := item.Func
	if sig == nil {
		fmt.Fprintf(b, "export declare const %s: unknown;\n", item.Name)
		return
	}

	ret := sig.ReturnType
	if ret == "" {
		ret = "any"
	}
	if sig.IsAsync && !strings.HasPrefix(ret, "Promise<") {
		ret = "Promise<" + ret + ">"
	}

	fmt.Fprintf(b, "export declare function %s%s(%s): %s;\n",
		item.Name, sig.TypeParams, renderParams(sig.Params), ret)
}

func writeClass(b *strings.Builder, item *extract.Item) {
	sig := item.Class
	if sig == nil {
		fmt.Fprintf(b, "export declare const %s: unknown;\n", item.Name)
		return
	}

	fmt.Fprintf(b, "export declare class %s%s", item.Name, sig.TypeParams)
	if sig.Extends != "" {
		b.WriteString(" extends ")
		b.WriteString(sig.Extends)
	}
	if sig.Implements != "" {
		b.WriteString(" implements ")
		b.WriteString(sig.Implements)
	}
	b.WriteString(" {\n")

	if sig.CtorParams != nil {
		fmt.Fprintf(b, "  constructor(%s);\n", renderParams(sig.CtorParams))
	}
	for _, m := range sig.Methods {
		if m.IsStatic {
			fmt.Fprintf(b, "  static %s%s;\n", m.Name, m.Signature)
		} else {
			fmt.Fprintf(b, "  %s%s;\n", m.Name, m.Signature)
		}
	}
	for _, p := range sig.Properties {
		var mods strings.Builder
		if p.IsStatic {
			mods.WriteString("static ")
		}
		if p.IsReadonly {
			mods.WriteString("readonly ")
		}
		typ := p.Type
		if typ == "" {
			typ = "any"
		}
		fmt.Fprintf(b, "  %s%s: %s;\n", mods.String(), p.Name, typ)
	}
	b.WriteString("}\n")
}

func writeConstant(b *strings.Builder, item *extract.Item) {
	typ := item.ConstType
	if typ == "" {
		typ = "unknown"
	}
	fmt.Fprintf(b, "export declare const %s: %s;\n", item.Name, typ)
}

func renderParams(params []extract.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		var sb strings.Builder
		sb.WriteString(p.Name)
		if p.Optional && !strings.HasPrefix(p.Name, "...") {
			sb.WriteString("?")
		}
		sb.WriteString(": ")
		if p.Type != "" {
			sb.WriteString(p.Type)
		} else {
			sb.WriteString("any")
		}
		parts[i] = sb.String()
	}
	return strings.Join(parts, ", ")
}

// writeBucketDecls mirrors the synthesizer's bucket derivation, including
// the rule that a bucket colliding with a flat export or env binding is
// dropped, so the declared names always agree with the runtime module.
func writeBucketDecls(b *strings.Builder, items []*extract.Item, envVars []string, strategy config.Strategy) {
	buckets := synth.Buckets(items, envVars, strategy)
	if len(buckets) > 0 {
		b.WriteString("\n")
	}
	for _, bk := range buckets {
		members := make([]string, len(bk.Members))
		for i, n := range bk.Members {
			members[i] = fmt.Sprintf("%s: typeof %s", n, n)
		}
		fmt.Fprintf(b, "export declare const %s: { %s };\n", bk.Name, strings.Join(members, "; "))
	}
}

func writeExportMap(b *strings.Builder, items []*extract.Item) {
	b.WriteString("\n")
	fmt.Fprintf(b, "export type %s = {\n", ExportMapTypeName)
	for _, item := range items {
		fmt.Fprintf(b, "  %q: { kind: %q; file: %q };\n", item.Name, string(item.Kind), item.File)
	}
	b.WriteString("};\n")
	fmt.Fprintf(b, "export declare const %s: %s;\n", synth.MetadataExportName, ExportMapTypeName)
}
