package extract

// Env import specifiers recognized by the extractor and the transformer.
// Named imports from either are treated as environment-variable references,
// never as cross-module exports.
const (
	PublicEnvSpecifier  = "$env/static/public"
	PrivateEnvSpecifier = "$env/static/private"
)

// Kind classifies an exported item.
type Kind string

const (
	KindFunction Kind = "function"
	KindClass    Kind = "class"
	KindConstant Kind = "constant"
)

// Param is a single function or constructor parameter.
type Param struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

// FunctionSig carries enough structure to regenerate a function signature.
type FunctionSig struct {
	Params     []Param `json:"params"`
	ReturnType string  `json:"returnType,omitempty"`
	IsAsync    bool    `json:"isAsync,omitempty"`
	TypeParams string  `json:"typeParams,omitempty"`
}

// Method is a class method with its rendered signature text,
// e.g. "(name: string): string".
type Method struct {
	Name      string `json:"name"`
	Signature string `json:"signature"`
	IsStatic  bool   `json:"isStatic,omitempty"`
}

// Property is a class field.
type Property struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	IsStatic   bool   `json:"isStatic,omitempty"`
	IsReadonly bool   `json:"isReadonly,omitempty"`
}

// ClassSig describes the shape of an exported class. The constructor is kept
// separate from the method list.
type ClassSig struct {
	CtorParams []Param    `json:"ctorParams,omitempty"`
	Methods    []Method   `json:"methods,omitempty"`
	Properties []Property `json:"properties,omitempty"`
	TypeParams string     `json:"typeParams,omitempty"`
	Extends    string     `json:"extends,omitempty"`
	Implements string     `json:"implements,omitempty"`
}

// Item is one exported declaration discovered in a source file.
// Exactly one of Func/Class is set for the matching kind; constants use
// ConstType. Placeholder items (unresolvable re-export names) carry only
// Name, OriginalName, and File.
type Item struct {
	Name         string       `json:"name"`
	Kind         Kind         `json:"kind"`
	File         string       `json:"file"`
	OriginalName string       `json:"originalName"`
	Doc          string       `json:"doc,omitempty"`
	Func         *FunctionSig `json:"func,omitempty"`
	Class        *ClassSig    `json:"class,omitempty"`
	ConstType    string       `json:"constType,omitempty"`
	Placeholder  bool         `json:"placeholder,omitempty"`
}

// Result is the extraction output for one file: exported items in discovery
// order plus the environment-variable names imported via the recognized env
// specifiers, deduplicated and in first-appearance order.
type Result struct {
	Items   []*Item  `json:"items"`
	EnvVars []string `json:"envVars,omitempty"`
}
