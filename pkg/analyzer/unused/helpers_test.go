package unused

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/panbanda/deadapi/pkg/archive"
	"github.com/panbanda/deadapi/pkg/classfile"
	"github.com/panbanda/deadapi/pkg/classfile/classfiletest"
	"github.com/panbanda/deadapi/pkg/models"
)

const (
	voidDesc   = "()V"
	stringDesc = "(Ljava/lang/String;)Ljava/lang/String;"
)

func key(class, name, desc string) models.MethodKey {
	return models.MethodKey{Class: class, Name: name, Descriptor: desc}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func classEntry(name string, b *classfiletest.ClassBuilder) archive.Entry {
	return archive.Entry{Name: name + ".class", Kind: archive.KindClass, Data: b.Bytes()}
}

func templateEntry(name, text string) archive.Entry {
	return archive.Entry{Name: name, Kind: archive.KindTemplate, Data: []byte(text)}
}

func artifact(id string, entries ...archive.Entry) *archive.Memory {
	return &archive.Memory{ID: id, Entries: entries}
}

// class builds a decoded class without going through the encoder.
func class(name, super string, interfaces ...string) *classfile.Class {
	return &classfile.Class{Name: name, SuperName: super, Interfaces: interfaces, Access: classfile.AccPublic}
}

func testStdlib(t *testing.T) *StdlibTable {
	t.Helper()
	table, err := LoadStdlibTable(0, discardLogger())
	require.NoError(t, err)
	return table
}

func buildIndex(t *testing.T, core archive.Artifact) *Index {
	t.Helper()
	ix := NewIndexer(NewFilters(FilterOptions{}), testStdlib(t), discardLogger())
	idx, err := ix.Index(context.Background(), core)
	require.NoError(t, err)
	return idx
}

// platform is a small core: a job type with a subclass, a static utility
// class, a widget whose method name is a prefix of a template word, and an
// extension point interface.
func platform() *archive.Memory {
	job := classfiletest.NewClass("hudson/model/Job")
	job.Method("<init>", "(Ljava/lang/String;)V", classfile.AccPublic)
	job.Method("scheduleBuild", "(I)Z", classfile.AccPublic)
	job.Method("poll", voidDesc, classfile.AccPublic)
	job.Method("getName", "()Ljava/lang/String;", classfile.AccPublic)
	job.Method("toString", "()Ljava/lang/String;", classfile.AccPublic)

	project := classfiletest.NewClass("hudson/model/FreeStyleProject").Extends("hudson/model/Job")
	project.Method("poll", voidDesc, classfile.AccPublic)
	project.Method("checkout", voidDesc, classfile.AccPublic)

	util := classfiletest.NewClass("hudson/Util")
	util.Method("fixNull", stringDesc, classfile.AccPublic|classfile.AccStatic)
	util.Method("rawEncode", stringDesc, classfile.AccPublic|classfile.AccStatic)

	widget := classfiletest.NewClass("hudson/widgets/Widget")
	widget.Method("bar", voidDesc, classfile.AccPublic)

	ext := classfiletest.NewClass("hudson/ExtensionPoint").Access(classfile.AccPublic | classfile.AccInterface | classfile.AccAbstract)
	ext.Method("extend", voidDesc, classfile.AccPublic|classfile.AccAbstract)

	return artifact("jenkins.war",
		classEntry("hudson/model/Job", job),
		classEntry("hudson/model/FreeStyleProject", project),
		classEntry("hudson/Util", util),
		classEntry("hudson/widgets/Widget", widget),
		classEntry("hudson/ExtensionPoint", ext),
		templateEntry("hudson/model/Job/index.jelly", "<j:jelly/>"),
	)
}

// platformCandidates are the candidates platform seeds.
var platformCandidates = []models.MethodKey{
	key("hudson/Util", "fixNull", stringDesc),
	key("hudson/Util", "rawEncode", stringDesc),
	key("hudson/model/FreeStyleProject", "checkout", voidDesc),
	key("hudson/model/FreeStyleProject", "poll", voidDesc),
	key("hudson/model/Job", "<init>", "(Ljava/lang/String;)V"),
	key("hudson/model/Job", "poll", voidDesc),
	key("hudson/model/Job", "scheduleBuild", "(I)Z"),
	key("hudson/widgets/Widget", "bar", voidDesc),
}
