// Package envimport rewrites env-import statements into plain process.env
// destructuring reads so the generated module works outside the original
// build environment.
package envimport

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"lukechampine.com/blake3"

	"github.com/EnoughXP/triggerkit/internal/extract"
)

const memoSize = 512

// Transformer rewrites the two recognized env-import specifiers. Results are
// memoized by content digest, so re-transforming an unchanged file is a map
// lookup. Safe for concurrent use.
type Transformer struct {
	mu     sync.Mutex
	parser *sitter.Parser
	memo   *lru.Cache[string, string]
}

// New creates a Transformer.
func New() *Transformer {
	p := sitter.NewParser()
	p.SetLanguage(typescript.GetLanguage())

	memo, _ := lru.New[string, string](memoSize)
	return &Transformer{parser: p, memo: memo}
}

type envImport struct {
	startByte uint32
	endByte   uint32
	bindings  []binding
}

type binding struct {
	name  string
	alias string
}

// Transform returns fileText with every recognized env-import statement
// replaced by an equivalent destructuring read from process.env. All other
// imports pass through unchanged. The imported identifier set and order are
// preserved exactly; no reference to the special specifiers survives.
func (t *Transformer) Transform(ctx context.Context, fileText []byte) (string, error) {
	sum := blake3.Sum256(fileText)
	key := hex.EncodeToString(sum[:])
	if cached, ok := t.memo.Get(key); ok {
		return cached, nil
	}

	t.mu.Lock()
	tree, err := t.parser.ParseCtx(ctx, nil, fileText)
	t.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("parsing for env-import transform: %w", err)
	}
	defer tree.Close()

	imports := collectEnvImports(tree.RootNode(), fileText)
	if len(imports) == 0 {
		out := string(fileText)
		t.memo.Add(key, out)
		return out, nil
	}

	var b strings.Builder
	b.Grow(len(fileText))
	last := uint32(0)
	for _, imp := range imports {
		b.Write(fileText[last:imp.startByte])
		b.WriteString(renderDestructure(imp.bindings))
		last = imp.endByte
	}
	b.Write(fileText[last:])

	out := b.String()
	t.memo.Add(key, out)
	return out, nil
}

func collectEnvImports(root *sitter.Node, src []byte) []envImport {
	var out []envImport
	for i := 0; i < int(root.NamedChildCount()); i++ {
		n := root.NamedChild(i)
		if n.Type() != "import_statement" {
			continue
		}
		source := strings.Trim(nodeFieldContent(n, "source", src), "'\"`")
		if source != extract.PublicEnvSpecifier && source != extract.PrivateEnvSpecifier {
			continue
		}
		out = append(out, envImport{
			startByte: n.StartByte(),
			endByte:   n.EndByte(),
			bindings:  collectBindings(n, src),
		})
	}
	return out
}

func collectBindings(n *sitter.Node, src []byte) []binding {
	var out []binding
	var visit func(node *sitter.Node)
	visit = func(node *sitter.Node) {
		if node.Type() == "import_specifier" {
			b := binding{
				name:  nodeFieldContent(node, "name", src),
				alias: nodeFieldContent(node, "alias", src),
			}
			if b.name != "" {
				out = append(out, b)
			}
			return
		}
		for i := 0; i < int(node.NamedChildCount()); i++ {
			visit(node.NamedChild(i))
		}
	}
	visit(n)
	return out
}

// renderDestructure emits `const { A, B: localB } = process.env;` for the
// given bindings, or nothing for a bare side-effect import.
func renderDestructure(bindings []binding) string {
	if len(bindings) == 0 {
		return ""
	}
	parts := make([]string, len(bindings))
	for i, b := range bindings {
		if b.alias != "" && b.alias != b.name {
			parts[i] = b.name + ": " + b.alias
		} else {
			parts[i] = b.name
		}
	}
	return "const { " + strings.Join(parts, ", ") + " } = process.env;"
}

func nodeFieldContent(n *sitter.Node, field string, src []byte) string {
	child := n.ChildByFieldName(field)
	if child == nil {
		return ""
	}
	return child.Content(src)
}
