package unused

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/deadapi/pkg/models"
)

func TestIsStandardLibraryClass(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"java/lang/Object", true},
		{"javax/servlet/Filter", true},
		{"hudson/model/Job", false},
		{"javafx/scene/Node", false},
		{"jenkins/model/Jenkins", false},
	}
	for _, tt := range tests {
		if got := IsStandardLibraryClass(tt.name); got != tt.want {
			t.Errorf("IsStandardLibraryClass(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestStdlibTable_Methods(t *testing.T) {
	table := testStdlib(t)
	assert.Equal(t, "17", table.Version())

	tests := []struct {
		name     string
		class    string
		contains []string
		excludes []string
	}{
		{
			name:     "own methods",
			class:    "java/lang/Object",
			contains: []string{"toString()Ljava/lang/String;", "equals(Ljava/lang/Object;)Z", "hashCode()I"},
			excludes: []string{"run()V"},
		},
		{
			name:     "superclass chain",
			class:    "java/lang/Thread",
			contains: []string{"run()V", "start()V", "toString()Ljava/lang/String;"},
		},
		{
			name:     "abstract class pulls in interfaces and their direct super-interfaces",
			class:    "java/util/AbstractList",
			contains: []string{"get(I)Ljava/lang/Object;", "size()I", "iterator()Ljava/util/Iterator;", "forEach(Ljava/util/function/Consumer;)V"},
		},
		{
			name:     "interface",
			class:    "java/lang/Runnable",
			contains: []string{"run()V"},
			excludes: []string{"toString()Ljava/lang/String;"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sigs := table.Methods(tt.class)
			for _, sig := range tt.contains {
				assert.True(t, sigs.Contains(sig), "expected %s in %s", sig, tt.class)
			}
			for _, sig := range tt.excludes {
				assert.False(t, sigs.Contains(sig), "unexpected %s in %s", sig, tt.class)
			}
		})
	}
}

func TestStdlibTable_UnknownClassLoggedOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	table, err := LoadStdlibTable(1, logger)
	require.NoError(t, err)

	for range 3 {
		assert.Empty(t, table.Methods("java/awt/Frame"))
		assert.NotEmpty(t, table.Methods("java/lang/Object"))
	}

	assert.Equal(t, 1, strings.Count(buf.String(), "java/awt/Frame"))
}

func TestStdlibTable_ExcludeInherited(t *testing.T) {
	table := testStdlib(t)

	tests := []struct {
		name   string
		super  string
		ifaces []string
		subset []models.MethodKey
		want   []models.MethodKey
	}{
		{
			name:  "standard superclass",
			super: "java/lang/Thread",
			subset: []models.MethodKey{
				key("hudson/Worker", "run", "()V"),
				key("hudson/Worker", "interrupt", "()V"),
				key("hudson/Worker", "process", "()V"),
			},
			want: []models.MethodKey{key("hudson/Worker", "process", "()V")},
		},
		{
			name:  "non-standard superclass only drops the universal root",
			super: "hudson/model/Job",
			subset: []models.MethodKey{
				key("hudson/model/Project", "toString", "()Ljava/lang/String;"),
				key("hudson/model/Project", "hashCode", "()I"),
				key("hudson/model/Project", "run", "()V"),
			},
			want: []models.MethodKey{key("hudson/model/Project", "run", "()V")},
		},
		{
			name:  "standard superclass missing from the table still drops the universal root",
			super: "java/util/TreeMap",
			subset: []models.MethodKey{
				key("hudson/util/CopyOnWriteMap", "equals", "(Ljava/lang/Object;)Z"),
				key("hudson/util/CopyOnWriteMap", "toString", "()Ljava/lang/String;"),
				key("hudson/util/CopyOnWriteMap", "replaceAll", "()V"),
			},
			want: []models.MethodKey{key("hudson/util/CopyOnWriteMap", "replaceAll", "()V")},
		},
		{
			name:  "enum overrides",
			super: "java/lang/Enum",
			subset: []models.MethodKey{
				key("hudson/model/Result", "toString", "()Ljava/lang/String;"),
				key("hudson/model/Result", "hashCode", "()I"),
				key("hudson/model/Result", "isWorseThan", "(Lhudson/model/Result;)Z"),
			},
			want: []models.MethodKey{key("hudson/model/Result", "isWorseThan", "(Lhudson/model/Result;)Z")},
		},
		{
			name:  "abstract queue",
			super: "java/util/AbstractQueue",
			subset: []models.MethodKey{
				key("hudson/util/Q", "equals", "(Ljava/lang/Object;)Z"),
				key("hudson/util/Q", "offer", "(Ljava/lang/Object;)Z"),
				key("hudson/util/Q", "size", "()I"),
				key("hudson/util/Q", "drain", "()V"),
			},
			want: []models.MethodKey{key("hudson/util/Q", "drain", "()V")},
		},
		{
			name:   "standard interface",
			super:  "hudson/model/Job",
			ifaces: []string{"java/lang/Comparable", "hudson/model/Describable"},
			subset: []models.MethodKey{
				key("hudson/model/Run", "compareTo", "(Ljava/lang/Object;)I"),
				key("hudson/model/Run", "compareTo", "(Lhudson/model/Run;)I"),
			},
			want: []models.MethodKey{key("hudson/model/Run", "compareTo", "(Lhudson/model/Run;)I")},
		},
		{
			name:   "name must match with descriptor",
			super:  "java/lang/Object",
			subset: []models.MethodKey{key("hudson/Util", "equals", "(Lhudson/Util;)Z")},
			want:   []models.MethodKey{key("hudson/Util", "equals", "(Lhudson/Util;)Z")},
		},
		{
			name:   "empty subset",
			super:  "java/lang/Thread",
			subset: nil,
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls := class("hudson/X", tt.super, tt.ifaces...)
			assert.Equal(t, tt.want, table.ExcludeInherited(cls, tt.subset))
		})
	}
}

func TestParseStdlibTable(t *testing.T) {
	data := []byte(`
version: "test"
classes:
  java/lang/Object:
    methods: [toString()Ljava/lang/String;]
  java/base/Base:
    super: java/lang/Object
    abstract: true
    interfaces: [java/base/Iface]
    methods: [base()V]
  java/base/Iface:
    interface: true
    interfaces: [java/base/Root]
    methods: [iface()V]
  java/base/Root:
    interface: true
    interfaces: [java/base/Deep]
    methods: [root()V]
  java/base/Deep:
    interface: true
    methods: [deep()V]
  java/base/Concrete:
    super: java/base/Base
    interfaces: [java/base/Deep]
    methods: [concrete()V]
`)
	table, err := ParseStdlibTable(data, 0, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, "test", table.Version())

	sigs := table.Methods("java/base/Concrete")
	for _, sig := range []string{"concrete()V", "base()V", "iface()V", "root()V", "toString()Ljava/lang/String;"} {
		assert.True(t, sigs.Contains(sig), sig)
	}
	assert.False(t, sigs.Contains("deep()V"), "interfaces of concrete classes and super-interfaces two levels up are not visible")

	_, err = ParseStdlibTable([]byte("classes: [unterminated"), 0, discardLogger())
	assert.Error(t, err)
}
