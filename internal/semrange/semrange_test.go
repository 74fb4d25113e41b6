package semrange

import "testing"

func TestParseRange_Canonical(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "^1.2.3", want: ">=1.2.3 <2.0.0"},
		{in: "^0.2.3", want: ">=0.2.3 <0.3.0"},
		{in: "^0.0.3", want: ">=0.0.3 <0.0.4"},
		{in: "^1.2", want: ">=1.2.0 <2.0.0"},
		{in: "~1.2.3", want: ">=1.2.3 <1.3.0"},
		{in: "~1", want: ">=1.0.0 <2.0.0"},
		{in: "1.2.3", want: "1.2.3"},
		{in: "=v1.2.3", want: "1.2.3"},
		{in: "1.x", want: ">=1.0.0 <2.0.0"},
		{in: "1.2", want: ">=1.2.0 <1.3.0"},
		{in: "*", want: "*"},
		{in: "", want: "*"},
		{in: ">=1.0.0 <1.5.0", want: ">=1.0.0 <1.5.0"},
		{in: ">= 1.0.0", want: ">=1.0.0"},
		{in: ">1.2", want: ">=1.3.0"},
		{in: "<=1.2", want: "<1.3.0"},
		{in: "1.2.3 - 2.3", want: ">=1.2.3 <2.4.0"},
		{in: "1.2.3 - 2.3.4", want: ">=1.2.3 <=2.3.4"},
		{in: "^2.0.0 || ^1.0.0", want: ">=1.0.0 <3.0.0"},
		{in: "^1.0.0 || ^3.0.0", want: ">=1.0.0 <2.0.0 || >=3.0.0 <4.0.0"},
		{in: "^1.0.0 || ^1.2.0", want: ">=1.0.0 <2.0.0"},
		{in: "<1.0.0 || >=1.0.0", want: "*"},
		{in: "4.17.21", want: "4.17.21"},
		{in: "^4.0.0-beta.2", want: ">=4.0.0-beta.2 <5.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			r, err := ParseRange(tt.in)
			if err != nil {
				t.Fatalf("ParseRange(%q) error = %v", tt.in, err)
			}
			if got := r.String(); got != tt.want {
				t.Errorf("ParseRange(%q).String() = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRange_Invalid(t *testing.T) {
	for _, in := range []string{"abc", "1.2.3.4", "^01.2.3", "1.2-beta", ">*", "1.0.0-"} {
		t.Run(in, func(t *testing.T) {
			if _, err := ParseRange(in); err == nil {
				t.Errorf("ParseRange(%q) should fail", in)
			}
		})
	}
}

func TestRange_Intersect(t *testing.T) {
	tests := []struct {
		name      string
		a, b      string
		want      string
		wantEmpty bool
	}{
		{name: "caret ranges narrow", a: "^1.0.0", b: "^1.2.0", want: ">=1.2.0 <2.0.0"},
		{name: "caret majors disjoint", a: "^1.0.0", b: "^2.0.0", wantEmpty: true},
		{name: "tilde inside caret", a: "^1.0.0", b: "~1.4.2", want: ">=1.4.2 <1.5.0"},
		{name: "exact inside caret", a: "^4.1.0", b: "4.17.21", want: "4.17.21"},
		{name: "exact outside caret", a: "^4.1.0", b: "3.9.0", wantEmpty: true},
		{name: "touching bounds inclusive", a: ">=2.0.0", b: "<=2.0.0", want: "2.0.0"},
		{name: "touching bounds exclusive", a: ">=2.0.0", b: "<2.0.0", wantEmpty: true},
		{name: "wildcard is identity", a: "*", b: "^3.22.0", want: ">=3.22.0 <4.0.0"},
		{name: "disjunction filters", a: "^1.0.0 || ^2.0.0", b: ">=2.1.0", want: ">=2.1.0 <3.0.0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustRange(tt.a).Intersect(MustRange(tt.b))
			if got.IsEmpty() != tt.wantEmpty {
				t.Fatalf("Intersect(%q, %q).IsEmpty() = %v, want %v (got %q)", tt.a, tt.b, got.IsEmpty(), tt.wantEmpty, got)
			}
			if !tt.wantEmpty && got.String() != tt.want {
				t.Errorf("Intersect(%q, %q) = %q, want %q", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestRange_Equal(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"^1.0.0 || ^1.2.0", "^1.0.0", true},
		{"1.x", "^1.0.0", true},
		{">=1.0.0 <=1.5.0 || >1.5.0 <2.0.0", "^1.0.0", true},
		{"1.2.3", "=1.2.3", true},
		{"^1.0.0", "^1.2.0", false},
		{"^1.0.0 || ^3.0.0", "^1.0.0", false},
	}
	for _, tt := range tests {
		if got := MustRange(tt.a).Equal(MustRange(tt.b)); got != tt.want {
			t.Errorf("Equal(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestRange_ExactVersionIsNotEmpty(t *testing.T) {
	r := MustRange("4.17.21")
	if r.IsEmpty() {
		t.Fatal("an exact version must admit itself")
	}
	if !r.Contains(MustVersion("4.17.21")) || r.Contains(MustVersion("4.17.22")) {
		t.Errorf("%q should contain only 4.17.21", r)
	}
}

func TestRange_Contains(t *testing.T) {
	r := MustRange(">=1.2.0 <2.0.0")

	for v, want := range map[string]bool{
		"1.2.0":  true,
		"1.9.9":  true,
		"1.1.9":  false,
		"2.0.0":  false,
		"1.10.0": true,
	} {
		if got := r.Contains(MustVersion(v)); got != want {
			t.Errorf("Contains(%s) = %v, want %v", v, got, want)
		}
	}
}

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion("v1.4.0+build.7")
	if err != nil {
		t.Fatalf("ParseVersion error = %v", err)
	}
	if v.String() != "1.4.0" {
		t.Errorf("String() = %q, want 1.4.0", v)
	}

	if _, err := ParseVersion("1.4"); err == nil {
		t.Error("partial versions must be rejected")
	}
	if MustVersion("1.10.0").Compare(MustVersion("1.9.0")) != 1 {
		t.Error("1.10.0 should sort after 1.9.0")
	}
}
