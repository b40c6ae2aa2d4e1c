package language

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		input   string
		want    Code
		wantErr bool
	}{
		{"fr", French, false},
		{"EN", English, false},
		{"de-DE", German, false},
		{"pt_BR", Portuguese, false},
		{" it ", Italian, false},
		{"ja", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Parse(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	if got := French.DisplayName(); got != "Français" {
		t.Errorf("DisplayName() = %v, want Français", got)
	}
	if got := Code("xx").DisplayName(); got != "xx" {
		t.Errorf("DisplayName() = %v, want xx", got)
	}
	if len(All()) != 6 {
		t.Errorf("All() len = %d, want 6", len(All()))
	}
}

func TestParsePair(t *testing.T) {
	p, err := ParsePair("fr-en")
	if err != nil {
		t.Fatalf("ParsePair() error = %v", err)
	}
	if p.From != French || p.To != English {
		t.Errorf("ParsePair() = %v", p)
	}
	if p.Reverse().String() != "en-fr" {
		t.Errorf("Reverse() = %v, want en-fr", p.Reverse())
	}
	if _, err := ParsePair("fren"); err == nil {
		t.Error("ParsePair(fren) should fail")
	}
	if _, err := ParsePair("fr-xx"); err == nil {
		t.Error("ParsePair(fr-xx) should fail")
	}
}
