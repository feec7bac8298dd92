package zconf

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/zconf/zconf/value"
)

func TestParseStringEmptyInput(t *testing.T) {
	convey.Convey("empty input parses to an empty tree", t, func() {
		tree, err := ParseString("")
		convey.So(err, convey.ShouldBeNil)
		convey.So(tree.Root().Len(), convey.ShouldEqual, 0)
	})
}

func TestParseStringErrorCarriesLineAndSnippet(t *testing.T) {
	convey.Convey("a duplicate key on line 3 is reported with that line and a snippet", t, func() {
		_, err := ParseString("a = 1\ndup = 2\ndup = 3\n")
		convey.So(err, convey.ShouldNotBeNil)
		pe, ok := err.(*ParseError)
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(pe.Line, convey.ShouldEqual, 3)
		convey.So(pe.Snippet, convey.ShouldContainSubstring, "dup")
	})
}

func TestParseStringErrorLineForMissingEquals(t *testing.T) {
	convey.Convey("a bare key with no '=' on line 2 reports that line", t, func() {
		_, err := ParseString("a = 1\nb\n")
		convey.So(err, convey.ShouldNotBeNil)
		pe, ok := err.(*ParseError)
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(pe.Line, convey.ShouldEqual, 2)
	})
}

func TestParseStringErrorLineForUnterminatedHeader(t *testing.T) {
	convey.Convey("a table header missing its closing bracket reports its line", t, func() {
		_, err := ParseString("a = 1\n[b\n")
		convey.So(err, convey.ShouldNotBeNil)
		pe, ok := err.(*ParseError)
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(pe.Line, convey.ShouldEqual, 2)
	})
}

func TestParseFileMissing(t *testing.T) {
	convey.Convey("parsing a missing file reports file-does-not-exist", t, func() {
		_, err := ParseFile(filepath.Join(t.TempDir(), "nope.zconf"))
		convey.So(err, convey.ShouldNotBeNil)
		pe := err.(*ParseError)
		convey.So(pe.Message, convey.ShouldEqual, "file does not exist")
	})
}

func TestParseFileRoundTrip(t *testing.T) {
	convey.Convey("a real file parses the same as its contents would via ParseString", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.zconf")
		if err := os.WriteFile(path, []byte("key = [1,2,3]\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		tree, err := ParseFile(path)
		convey.So(err, convey.ShouldBeNil)
		v, ok := tree.Root().Get("key")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(len(v.(*value.Array).Elems), convey.ShouldEqual, 3)
	})
}

func TestParseStringAsObject(t *testing.T) {
	convey.Convey("as_object exposes the same keys through Object", t, func() {
		obj, err := ParseStringAsObject("a = 1")
		convey.So(err, convey.ShouldBeNil)
		v, ok := obj.Get("a")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(v, convey.ShouldEqual, value.Integer(1))
	})
}

func TestNewBuilderProducesParseableOutput(t *testing.T) {
	convey.Convey("NewBuilder wires the Builder into the entry surface", t, func() {
		b := NewBuilder()
		convey.So(b.AddValue("a", value.Integer(1), ""), convey.ShouldBeNil)
		tree, err := ParseString(b.GetString())
		convey.So(err, convey.ShouldBeNil)
		v, _ := tree.Root().Get("a")
		convey.So(v, convey.ShouldEqual, value.Integer(1))
	})
}
