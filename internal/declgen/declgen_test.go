package declgen

import (
	"strings"
	"testing"

	"github.com/EnoughXP/triggerkit/internal/config"
	"github.com/EnoughXP/triggerkit/internal/extract"
)

func TestEmitAsyncFunctionDeclaration(t *testing.T) {
	items := []*extract.Item{{
		Name: "sendWelcomeEmail", Kind: extract.KindFunction,
		File: "/proj/src/lib/email.ts", OriginalName: "sendWelcomeEmail",
		Func: &extract.FunctionSig{
			IsAsync: true,
			Params:  []extract.Param{{Name: "userId", Type: "string"}},
		},
	}}

	out := Emit(items, nil, config.Strategy{Mode: config.ModeIndividual})
	if !strings.Contains(out, "export declare function sendWelcomeEmail(userId: string): Promise<any>;") {
		t.Errorf("async return not wrapped:\n%s", out)
	}
}

func TestEmitDoesNotDoubleWrapPromise(t *testing.T) {
	items := []*extract.Item{{
		Name: "fetchUser", Kind: extract.KindFunction, File: "/a.ts", OriginalName: "fetchUser",
		Func: &extract.FunctionSig{IsAsync: true, ReturnType: "Promise<User>"},
	}}

	out := Emit(items, nil, config.Strategy{Mode: config.ModeIndividual})
	if strings.Contains(out, "Promise<Promise<") {
		t.Errorf("double-wrapped Promise:\n%s", out)
	}
	if !strings.Contains(out, "(): Promise<User>;") {
		t.Errorf("missing declared return type:\n%s", out)
	}
}

func TestEmitGenericsAndOptionalParams(t *testing.T) {
	items := []*extract.Item{{
		Name: "pick", Kind: extract.KindFunction, File: "/a.ts", OriginalName: "pick",
		Func: &extract.FunctionSig{
			TypeParams: "<T>",
			Params: []extract.Param{
				{Name: "items", Type: "T[]"},
				{Name: "count", Type: "number", Optional: true},
			},
			ReturnType: "T[]",
		},
	}}

	out := Emit(items, nil, config.Strategy{Mode: config.ModeIndividual})
	if !strings.Contains(out, "export declare function pick<T>(items: T[], count?: number): T[];") {
		t.Errorf("generic/optional rendering wrong:\n%s", out)
	}
}

func TestEmitClassDeclaration(t *testing.T) {
	items := []*extract.Item{{
		Name: "EmailService", Kind: extract.KindClass, File: "/a.ts", OriginalName: "EmailService",
		Class: &extract.ClassSig{
			TypeParams: "<T>",
			Extends:    "BaseService",
			Implements: "Mailer",
			CtorParams: []extract.Param{{Name: "apiKey", Type: "string"}},
			Methods: []extract.Method{
				{Name: "send", Signature: "(to: string): Promise<void>"},
				{Name: "configure", Signature: "(opts: Options): void", IsStatic: true},
			},
			Properties: []extract.Property{
				{Name: "retries", Type: "number", IsStatic: true},
				{Name: "endpoint", Type: "string", IsReadonly: true},
			},
		},
	}}

	out := Emit(items, nil, config.Strategy{Mode: config.ModeIndividual})

	for _, want := range []string{
		"export declare class EmailService<T> extends BaseService implements Mailer {",
		"  constructor(apiKey: string);",
		"  send(to: string): Promise<void>;",
		"  static configure(opts: Options): void;",
		"  static retries: number;",
		"  readonly endpoint: string;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestEmitConstantsAndEnvVars(t *testing.T) {
	items := []*extract.Item{
		{Name: "MAX_RETRIES", Kind: extract.KindConstant, File: "/a.ts", OriginalName: "MAX_RETRIES", ConstType: "number"},
		{Name: "ghost", Kind: extract.KindConstant, File: "/a.ts", OriginalName: "ghost", Placeholder: true},
	}

	out := Emit(items, []string{"DATABASE_URL"}, config.Strategy{Mode: config.ModeIndividual})

	if !strings.Contains(out, "export declare const DATABASE_URL: string;") {
		t.Errorf("env var declaration missing:\n%s", out)
	}
	if !strings.Contains(out, "export declare const MAX_RETRIES: number;") {
		t.Errorf("typed constant missing:\n%s", out)
	}
	if !strings.Contains(out, "export declare const ghost: unknown;") {
		t.Errorf("placeholder should declare unknown:\n%s", out)
	}
}

func TestEmitDocstringAsJSDoc(t *testing.T) {
	items := []*extract.Item{{
		Name: "helper", Kind: extract.KindFunction, File: "/a.ts", OriginalName: "helper",
		Doc:  "Does a thing.",
		Func: &extract.FunctionSig{},
	}}

	out := Emit(items, nil, config.Strategy{Mode: config.ModeIndividual})
	if !strings.Contains(out, " * Does a thing.") {
		t.Errorf("docstring not carried into declarations:\n%s", out)
	}
}

func TestEmitExportMapCoversEveryName(t *testing.T) {
	items := []*extract.Item{
		{Name: "a", Kind: extract.KindFunction, File: "/x.ts", OriginalName: "a", Func: &extract.FunctionSig{}},
		{Name: "B", Kind: extract.KindClass, File: "/y.ts", OriginalName: "B", Class: &extract.ClassSig{}},
	}

	out := Emit(items, nil, config.Strategy{Mode: config.ModeIndividual})
	if !strings.Contains(out, `"a": { kind: "function"; file: "/x.ts" };`) {
		t.Errorf("map entry for a missing:\n%s", out)
	}
	if !strings.Contains(out, `"B": { kind: "class"; file: "/y.ts" };`) {
		t.Errorf("map entry for B missing:\n%s", out)
	}
	if !strings.Contains(out, "export type "+ExportMapTypeName+" = {") {
		t.Errorf("aggregate map type missing:\n%s", out)
	}
}

func TestEmitBucketDeclsInGroupedMode(t *testing.T) {
	items := []*extract.Item{
		{Name: "a", Kind: extract.KindFunction, File: "/proj/src/email.ts", OriginalName: "a", Func: &extract.FunctionSig{}},
		{Name: "b", Kind: extract.KindFunction, File: "/proj/src/email.ts", OriginalName: "b", Func: &extract.FunctionSig{}},
	}

	out := Emit(items, nil, config.Strategy{Mode: config.ModeGrouped, GroupBy: config.GroupByFile})
	if !strings.Contains(out, "export declare const email: { a: typeof a; b: typeof b };") {
		t.Errorf("bucket declaration missing:\n%s", out)
	}
}

func TestEmitDeclaresCollidingNameOnce(t *testing.T) {
	items := []*extract.Item{
		{Name: "DATABASE_URL", Kind: extract.KindConstant, File: "/db.ts", OriginalName: "DATABASE_URL", ConstType: "string"},
	}

	out := Emit(items, []string{"DATABASE_URL"}, config.Strategy{Mode: config.ModeIndividual})
	if got := strings.Count(out, "export declare const DATABASE_URL"); got != 1 {
		t.Errorf("DATABASE_URL declared %d times, want exactly 1:\n%s", got, out)
	}
}

func TestEmitSkipsBucketCollidingWithFlatExport(t *testing.T) {
	items := []*extract.Item{
		{Name: "utils", Kind: extract.KindFunction, File: "/proj/src/utils.ts", OriginalName: "utils", Func: &extract.FunctionSig{}},
	}

	out := Emit(items, nil, config.Strategy{Mode: config.ModeGrouped, GroupBy: config.GroupByFile})
	if strings.Contains(out, "export declare const utils: {") {
		t.Errorf("bucket must not shadow the flat export of the same name:\n%s", out)
	}
	if !strings.Contains(out, "export declare function utils") {
		t.Errorf("flat declaration missing:\n%s", out)
	}
}

func TestEmitDeterministic(t *testing.T) {
	items := []*extract.Item{
		{Name: "a", Kind: extract.KindFunction, File: "/x.ts", OriginalName: "a", Func: &extract.FunctionSig{}},
	}
	first := Emit(items, []string{"A"}, config.Strategy{Mode: config.ModeMixed, GroupBy: config.GroupByFile})
	second := Emit(items, []string{"A"}, config.Strategy{Mode: config.ModeMixed, GroupBy: config.GroupByFile})
	if first != second {
		t.Error("declaration emission must be deterministic")
	}
}
