package bytecode

import "testing"

func TestLoadFiltersNonOpcodes(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []OpCode
	}{
		{"empty", "", nil},
		{"comments stripped", "foo+bar-baz", []OpCode{OpIncr, OpDecr}},
		{"all eight ops", "><+-.,[]", []OpCode{OpRight, OpLeft, OpIncr, OpDecr, OpPut, OpGet, OpOpen, OpClose}},
		{"whitespace and newlines", "+ +\n+\t+", []OpCode{OpIncr, OpIncr, OpIncr, OpIncr}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Load([]byte(tc.src))
			if len(p.Ops) != len(tc.want) {
				t.Fatalf("got %d ops, want %d", len(p.Ops), len(tc.want))
			}
			for i, op := range tc.want {
				if p.Ops[i] != op {
					t.Errorf("op[%d] = %v, want %v", i, p.Ops[i], op)
				}
			}
		})
	}
}

func TestJumpMapMatchesBrackets(t *testing.T) {
	p := Load([]byte("++[>+<-]>."))
	// positions: 0:+ 1:+ 2:[ 3:> 4:+ 5:< 6:- 7:] 8:> 9:.
	if p.Jump[2] != 7 {
		t.Errorf("jump[2] = %d, want 7", p.Jump[2])
	}
	if p.Jump[7] != 2 {
		t.Errorf("jump[7] = %d, want 2", p.Jump[7])
	}
}

func TestJumpMapNested(t *testing.T) {
	p := Load([]byte("[[]]"))
	// 0:[ 1:[ 2:] 3:]
	if p.Jump[0] != 3 || p.Jump[3] != 0 {
		t.Errorf("outer pair wrong: jump[0]=%d jump[3]=%d", p.Jump[0], p.Jump[3])
	}
	if p.Jump[1] != 2 || p.Jump[2] != 1 {
		t.Errorf("inner pair wrong: jump[1]=%d jump[2]=%d", p.Jump[1], p.Jump[2])
	}
}

func TestLoadPanicsOnUnmatchedClose(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unmatched ']'")
		}
	}()
	Load([]byte("]"))
}

func TestLoadPanicsOnUnmatchedOpen(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on unmatched '['")
		}
	}()
	Load([]byte("["))
}
