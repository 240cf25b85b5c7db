package program_test

import (
	"bytes"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/heap"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/interp"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/program"
	"github.com/000MatthewJamesKalasky/objeck-lang-sub000/trap"
)

// TestSaveLoadRoundTripsLibraryImage builds a library image touching
// every field the writer/loader pair carries (enum table, class/inst
// decls, multiple instruction operand kinds, constant pools) and checks
// that Save followed by Load reproduces it field-for-field.
func TestSaveLoadRoundTripsLibraryImage(t *testing.T) {
	prog := program.NewProgram()
	prog.Kind = program.Library
	prog.Constants = program.ConstantPools{
		Floats: []float64{3.5, -1.25},
		Ints:   []int64{7, -9},
		Chars:  []string{"hello"},
	}
	prog.AddEnum(&program.Enum{
		Name:   "Color",
		Offset: 0,
		Items:  []program.EnumItem{{Name: "Red", Value: 0}, {Name: "Blue", Value: 1}},
	})

	shapeID := program.ClassID(0)
	shape := program.NewClass(shapeID, "Shape", "shape.obs", 1, 2)
	shape.Ifaces = []program.ClassID{}
	shape.ClassDecls = []program.Decl{{Slot: 0, Kind: program.IntParm}}
	shape.InstDecls = []program.Decl{{Slot: 0, Kind: program.IntParm}, {Slot: 1, Kind: program.FloatParm}}
	shape.Flags = program.ClassFlags{IsPublic: true, IsLibrary: true}

	areaID := program.MethodID(0)
	areaInstrs := []program.Instruction{
		{Op: program.LoadVar, Op1: 0, Op2: int64(program.Local), Op3: int64(program.FloatVar), Line: 10},
		{Op: program.LoadFloatLit, Flt: 2.5, Line: 11},
		{Op: program.Mul, Op1: int64(program.FloatNum), Line: 11},
		{Op: program.Trap, Op1: int64(trap.StdOutFloat), Str1: "note", Str2: "area computed", Line: 12},
		{Op: program.Rtrn, Line: 13},
	}
	shape.Methods[areaID] = &program.Method{
		ClassID:      shapeID,
		ID:           areaID,
		Name:         "Shape:area:F:F",
		Return:       program.ReturnFloat,
		NumParams:    1,
		LocalWords:   2,
		ParamDecls:   []program.Decl{{Slot: 0, Kind: program.FloatParm}},
		Instructions: areaInstrs,
		Jumps:        program.BuildJumpTable(areaInstrs),
		Flags:        program.MethodFlags{IsVirtual: true},
	}
	prog.AddClass(shape)

	path := filepath.Join(t.TempDir(), "shape.obl")
	if err := program.Save(prog, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := program.NewLoader().Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !reflect.DeepEqual(loaded.Constants, prog.Constants) {
		t.Fatalf("constants mismatch: got %+v, want %+v", loaded.Constants, prog.Constants)
	}

	got, ok := loaded.GetClass(shapeID)
	if !ok {
		t.Fatalf("class %d missing after round trip", shapeID)
	}
	if got.Name != shape.Name || got.FileName != shape.FileName {
		t.Fatalf("class identity mismatch: got %+v", got)
	}
	if !reflect.DeepEqual(got.ClassDecls, shape.ClassDecls) {
		t.Fatalf("ClassDecls mismatch: got %+v, want %+v", got.ClassDecls, shape.ClassDecls)
	}
	if !reflect.DeepEqual(got.InstDecls, shape.InstDecls) {
		t.Fatalf("InstDecls mismatch: got %+v, want %+v", got.InstDecls, shape.InstDecls)
	}
	if got.Flags != shape.Flags {
		t.Fatalf("Flags mismatch: got %+v, want %+v", got.Flags, shape.Flags)
	}

	gotArea, ok := got.Methods[areaID]
	if !ok {
		t.Fatalf("method %d missing after round trip", areaID)
	}
	wantArea := shape.Methods[areaID]
	if gotArea.Name != wantArea.Name || gotArea.Return != wantArea.Return ||
		gotArea.NumParams != wantArea.NumParams || gotArea.LocalWords != wantArea.LocalWords ||
		gotArea.Flags != wantArea.Flags {
		t.Fatalf("method fields mismatch: got %+v, want %+v", gotArea, wantArea)
	}
	if !reflect.DeepEqual(gotArea.Instructions, wantArea.Instructions) {
		t.Fatalf("instructions mismatch: got %+v, want %+v", gotArea.Instructions, wantArea.Instructions)
	}

	if _, ok := loaded.GetEnum("Color"); !ok {
		t.Fatalf("enum Color missing after round trip")
	}
}

// TestLoadBuildsBootstrapFromArgs saves a minimal executable image, then
// loads it with a real argv slice and runs the synthesized bootstrap
// method end to end: the loader must wrap each argument string in a
// String instance, build the backing object array, and MTHD_CALL the
// start method with it, landing the array in Main.Run's one parameter;
// Main.Run prints its outer size via LOAD_MULTI_ARY_SIZE.
func TestLoadBuildsBootstrapFromArgs(t *testing.T) {
	prog := program.NewProgram()
	prog.Kind = program.Executable

	stringID := program.ClassID(0)
	prog.AddClass(program.NewClass(stringID, "String", "string.obs", 0, 1))
	prog.StringClassID = stringID

	mainID := program.ClassID(1)
	main := program.NewClass(mainID, "Main", "main.obs", 0, 0)
	runID := program.MethodID(0)
	main.Methods[runID] = &program.Method{
		ClassID:    mainID,
		ID:         runID,
		Name:       "Main:Run:o.System.String*:",
		Return:     program.ReturnNil,
		NumParams:  1,
		LocalWords: 1,
		Instructions: []program.Instruction{
			{Op: program.LoadVar, Op1: 0, Op2: int64(program.Local), Op3: int64(program.IntVar)},
			{Op: program.LoadIntLit, Op1: 0},
			{Op: program.Trap, Op1: int64(trap.LoadMultiArySize)},
			{Op: program.Trap, Op1: int64(trap.StdOutInt)},
			{Op: program.Rtrn},
		},
		Flags: program.MethodFlags{IsFunc: true},
	}
	main.Methods[runID].Jumps = program.BuildJumpTable(main.Methods[runID].Instructions)
	prog.AddClass(main)
	prog.StartClassID = mainID
	prog.StartMethodID = runID

	path := filepath.Join(t.TempDir(), "main.obe")
	if err := program.Save(prog, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := program.NewLoader().Load(path, []string{"first", "second", "third"})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.BootstrapMethod == nil {
		t.Fatalf("expected BootstrapMethod to be set for an executable image")
	}
	if len(loaded.BootstrapMethod.Instructions) == 0 {
		t.Fatalf("expected BootstrapMethod to carry instructions")
	}

	var out, errOut bytes.Buffer
	hp := heap.New(0)
	traps := trap.NewTable()
	fatal := interp.Run(loaded, hp, traps, &out, &errOut, bytes.NewReader(nil))
	if fatal != nil {
		t.Fatalf("unexpected fatal: %v", fatal)
	}
	if out.String() != "3" {
		t.Fatalf("expected argv length 3 reaching Main.Run, got %q", out.String())
	}
}
