package classfile

import (
	"errors"
	"reflect"
	"testing"
)

func TestParseMethodDescriptor(t *testing.T) {
	tests := []struct {
		desc       string
		wantParams []Type
		wantReturn Type
	}{
		{"()V", nil, Void},
		{"()Z", nil, Boolean},
		{"(I)Ljava/lang/String;", []Type{"I"}, "Ljava/lang/String;"},
		{"(ILjava/lang/String;[J)V", []Type{"I", "Ljava/lang/String;", "[J"}, Void},
		{"([[Lhudson/model/Job;D)[B", []Type{"[[Lhudson/model/Job;", "D"}, "[B"},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			md, err := ParseMethodDescriptor(tt.desc)
			if err != nil {
				t.Fatalf("ParseMethodDescriptor(%q) error: %v", tt.desc, err)
			}
			if !reflect.DeepEqual(md.Params, tt.wantParams) {
				t.Errorf("Params = %v, want %v", md.Params, tt.wantParams)
			}
			if md.Return != tt.wantReturn {
				t.Errorf("Return = %q, want %q", md.Return, tt.wantReturn)
			}
		})
	}
}

func TestParseMethodDescriptor_Invalid(t *testing.T) {
	for _, desc := range []string{
		"",
		"V",
		"(I",
		"(Ljava/lang/String)V",
		"(Q)V",
		"()",
		"()II",
		"([)V",
	} {
		t.Run(desc, func(t *testing.T) {
			_, err := ParseMethodDescriptor(desc)
			if !errors.Is(err, ErrMalformed) {
				t.Errorf("ParseMethodDescriptor(%q) error = %v, want ErrMalformed", desc, err)
			}
		})
	}
}

func TestType_SourceName(t *testing.T) {
	tests := []struct {
		typ  Type
		want string
	}{
		{"I", "int"},
		{"Z", "boolean"},
		{Void, "void"},
		{"Ljava/lang/String;", "java.lang.String"},
		{"[B", "byte[]"},
		{"[[Lhudson/model/Job;", "hudson.model.Job[][]"},
		{"Lhudson/model/Run$Artifact;", "hudson.model.Run$Artifact"},
	}

	for _, tt := range tests {
		if got := tt.typ.SourceName(); got != tt.want {
			t.Errorf("Type(%q).SourceName() = %q, want %q", tt.typ, got, tt.want)
		}
	}
}
