package dis

import "testing"

func TestInstructionFormat(t *testing.T) {
	resolve := func(a Address) (string, bool) {
		if a == 0x150 {
			return "game_loop", true
		}
		return "", false
	}

	tests := []struct {
		name string
		inst Instruction
		want string
	}{
		{
			name: "no arguments",
			inst: Instruction{Text: "NOP"},
			want: "NOP",
		},
		{
			name: "address resolves to symbol",
			inst: Instruction{Text: "JP {target}", Args: Args{"target": Loc(0x150)}},
			want: "JP game_loop",
		},
		{
			name: "unresolved address falls back to hex",
			inst: Instruction{Text: "JP {target}", Args: Args{"target": Loc(0x1234)}},
			want: "JP $1234",
		},
		{
			name: "word immediate",
			inst: Instruction{Text: "LD BC, {v}", Args: Args{"v": Word(0xbeef)}},
			want: "LD BC, $beef",
		},
		{
			name: "byte immediate",
			inst: Instruction{Text: "LD B, {v}", Args: Args{"v": Byte(0x7)}},
			want: "LD B, $07",
		},
		{
			name: "signed displacement",
			inst: Instruction{Text: "ADD SP, {v}", Args: Args{"v": Num(-8)}},
			want: "ADD SP, -8",
		},
		{
			name: "multiple operands",
			inst: Instruction{
				Text: "CALL {cond}, {target}",
				Args: Args{"cond": Num(1), "target": Loc(0x150)},
			},
			want: "CALL 1, game_loop",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.inst.Format(resolve); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
