package engine

import (
	"strings"
	"testing"

	"github.com/chazu/uvreg/pkg/csg"
)

func TestPreprocessSource(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"simple keyword", `(sphere :radius 4)`, `(sphere "__kw_radius" 4)`},
		{"multiple keywords", `(cylinder :radius 2 :height 9)`, `(cylinder "__kw_radius" 2 "__kw_height" 9)`},
		{"keyword in string preserved", `"thing with :keyword inside"`, `"thing with :keyword inside"`},
		{"escaped quote in string", `"a \" :b"`, `"a \" :b"`},
		{"backtick string preserved", "`raw :x-y`", "`raw :x-y`"},
		{"assignment operator preserved", `(def x := 10)`, `(def x := 10)`},
		{"kebab-case identifier", `(solid-ref :part-a)`, `(solid_ref "__kw_part-a")`},
		{"minus operator preserved", `(- 10 5)`, `(- 10 5)`},
		{"negative literal preserved", `(vec3 -1 2 3)`, `(vec3 -1 2 3)`},
		{"double semicolon comment", `;; comment with :keyword`, `// comment with :keyword`},
		{"single semicolon comment", `; simple comment`, `// simple comment`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := preprocessSource(tt.input); got != tt.expect {
				t.Errorf("preprocessSource(%q) = %q, want %q", tt.input, got, tt.expect)
			}
		})
	}
}

func evaluate(t *testing.T, source string) *csg.Tree {
	t.Helper()
	tr, evalErrs, err := NewEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("eval errors: %v", evalErrs)
	}
	if tr == nil {
		t.Fatal("expected non-nil tree")
	}
	return tr
}

func TestBoxSolid(t *testing.T) {
	tr := evaluate(t, `(solid "cube" (box :size (vec3 10 20 30)))`)

	cube := tr.Lookup("cube")
	if cube == nil {
		t.Fatal("expected node named 'cube'")
	}
	if cube.Kind != csg.NodePrimitive {
		t.Errorf("expected NodePrimitive, got %s", cube.Kind)
	}
	bd, ok := cube.Data.(csg.BoxData)
	if !ok {
		t.Fatalf("expected BoxData, got %T", cube.Data)
	}
	if bd.Size != (csg.Vec3{X: 10, Y: 20, Z: 30}) {
		t.Errorf("size = %v, want (10, 20, 30)", bd.Size)
	}
	if len(tr.Roots) != 1 || tr.Roots[0] != cube.ID {
		t.Errorf("unplaced solid should be the only root")
	}
}

func TestPositionalBox(t *testing.T) {
	tr := evaluate(t, `(solid "b" (box 1 2.5 3))`)
	bd := tr.Lookup("b").Data.(csg.BoxData)
	if bd.Size != (csg.Vec3{X: 1, Y: 2.5, Z: 3}) {
		t.Errorf("size = %v", bd.Size)
	}
}

func TestCylinderAndSphere(t *testing.T) {
	tr := evaluate(t, `
(solid "pin" (cylinder :radius 3 :height 12))
(solid "ball" (sphere :radius 7.5))
`)
	cd, ok := tr.Lookup("pin").Data.(csg.CylinderData)
	if !ok || cd.Radius != 3 || cd.Height != 12 {
		t.Errorf("pin data = %+v", tr.Lookup("pin").Data)
	}
	sd, ok := tr.Lookup("ball").Data.(csg.SphereData)
	if !ok || sd.Radius != 7.5 {
		t.Errorf("ball data = %+v", tr.Lookup("ball").Data)
	}
	if len(tr.Roots) != 2 {
		t.Errorf("roots = %d, want 2", len(tr.Roots))
	}
}

func TestVariableReference(t *testing.T) {
	tr := evaluate(t, `
(def w 40)
(solid "plate" (box w (* w 2) 5))
`)
	bd := tr.Lookup("plate").Data.(csg.BoxData)
	if bd.Size.X != 40 || bd.Size.Y != 80 {
		t.Errorf("size = %v, want (40, 80, 5)", bd.Size)
	}
}

func TestPlaceAdoptsRoot(t *testing.T) {
	tr := evaluate(t, `
(solid "first" (box 1 1 1))
(solid "second" (box 2 2 2))
(place (solid-ref "first") :at (vec3 10 0 0) :rotate (vec3 0 0 90))
`)
	if len(tr.Roots) != 2 {
		t.Fatalf("roots = %d, want 2", len(tr.Roots))
	}
	root := tr.Get(tr.Roots[0])
	if root.Kind != csg.NodeTransform {
		t.Fatalf("first root kind = %s, want transform", root.Kind)
	}
	td := root.Data.(csg.TransformData)
	if td.Translation == nil || *td.Translation != (csg.Vec3{X: 10}) {
		t.Errorf("translation = %v", td.Translation)
	}
	if td.Rotation == nil || *td.Rotation != (csg.Vec3{Z: 90}) {
		t.Errorf("rotation = %v", td.Rotation)
	}

	placed, err := csg.Flatten(tr)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(placed) != 2 || placed[0].Name != "first" || placed[1].Name != "second" {
		t.Fatalf("placed order wrong: %+v", placed)
	}
}

func TestAssembly(t *testing.T) {
	tr := evaluate(t, `
(assembly "bracket"
  (place (solid "base" (box 40 20 5)))
  (place (solid "post" (cylinder :radius 3 :height 20)) :at (vec3 20 10 5)))
`)
	if len(tr.Roots) != 1 {
		t.Fatalf("roots = %d, want 1", len(tr.Roots))
	}
	asm := tr.Lookup("bracket")
	if asm == nil || asm.Kind != csg.NodeGroup {
		t.Fatal("expected group node 'bracket'")
	}
	if len(asm.Children) != 2 {
		t.Errorf("children = %d, want 2", len(asm.Children))
	}
	placed, err := csg.Flatten(tr)
	if err != nil {
		t.Fatalf("Flatten: %v", err)
	}
	if len(placed) != 2 {
		t.Fatalf("placed = %d, want 2", len(placed))
	}
}

func TestBuiltinErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{"vec3 arity", `(vec3 1 2)`, "vec3 requires exactly 3"},
		{"box missing size", `(box 1 2)`, "box requires"},
		{"negative box", `(box -1 2 3)`, "must not be negative"},
		{"cylinder missing radius", `(cylinder :height 3)`, "requires :radius"},
		{"sphere zero radius", `(sphere :radius 0)`, "must be positive"},
		{"solid without shape", `(solid "x" 3)`, "expected shape"},
		{"duplicate solid", `(solid "x" (box 1 1 1)) (solid "x" (box 1 1 1))`, "already defined"},
		{"unknown ref", `(solid-ref "nope")`, "no solid named"},
		{"place non-ref", `(place 3)`, "expected node reference"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, evalErrs, err := NewEngine().Evaluate(tt.source)
			if err != nil {
				t.Fatalf("unexpected fatal error: %v", err)
			}
			if tr != nil {
				t.Error("expected nil tree on eval error")
			}
			if len(evalErrs) == 0 {
				t.Fatal("expected eval error")
			}
			if !strings.Contains(evalErrs[0].Message, tt.want) {
				t.Errorf("message = %q, want containing %q", evalErrs[0].Message, tt.want)
			}
		})
	}
}
