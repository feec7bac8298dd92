package value

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func noArrayTables(string) bool { return false }

func TestPutAndGet(t *testing.T) {
	convey.Convey("a plain put lands in the current table", t, func() {
		tree := NewTree()
		tree.Put("x", Integer(1))
		v, ok := tree.Root().Get("x")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(v, convey.ShouldEqual, Integer(1))
	})
}

func TestEnterTableNesting(t *testing.T) {
	convey.Convey("[a.b] nests under [a]", t, func() {
		tree := NewTree()
		tree.EnterTable("a", noArrayTables)
		tree.Put("x", Integer(1))
		tree.EnterTable("a.b", noArrayTables)
		tree.Put("y", Integer(2))

		a, ok := tree.Root().Get("a")
		convey.So(ok, convey.ShouldBeTrue)
		aTbl := a.(*Table)
		xv, _ := aTbl.Get("x")
		convey.So(xv, convey.ShouldEqual, Integer(1))

		b, ok := aTbl.Get("b")
		convey.So(ok, convey.ShouldBeTrue)
		bTbl := b.(*Table)
		yv, _ := bTbl.Get("y")
		convey.So(yv, convey.ShouldEqual, Integer(2))
	})
}

func TestBeginEndInline(t *testing.T) {
	convey.Convey("inline table pushes and restores the cursor", t, func() {
		tree := NewTree()
		tree.BeginInline("owner")
		tree.Put("name", String("Tom"))
		tree.EndInline()
		tree.Put("top", Integer(1))

		owner, ok := tree.Root().Get("owner")
		convey.So(ok, convey.ShouldBeTrue)
		name, _ := owner.(*Table).Get("name")
		convey.So(name, convey.ShouldEqual, String("Tom"))

		top, ok := tree.Root().Get("top")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(top, convey.ShouldEqual, Integer(1))
	})
}

func TestEnterArrayTable(t *testing.T) {
	convey.Convey("repeated [[fruit]] headers append elements", t, func() {
		tree := NewTree()
		isArr := func(p string) bool { return p == "fruit" }

		tree.EnterArrayTable("fruit", noArrayTables)
		tree.Put("name", String("apple"))
		tree.EnterArrayTable("fruit", isArr)
		tree.Put("name", String("banana"))

		fv, ok := tree.Root().Get("fruit")
		convey.So(ok, convey.ShouldBeTrue)
		arr := fv.(*Array)
		convey.So(len(arr.Elems), convey.ShouldEqual, 2)
		n0, _ := arr.Elems[0].(*Table).Get("name")
		convey.So(n0, convey.ShouldEqual, String("apple"))
		n1, _ := arr.Elems[1].(*Table).Get("name")
		convey.So(n1, convey.ShouldEqual, String("banana"))
	})
}

func TestEscapeSegmentRoundTrip(t *testing.T) {
	convey.Convey("a quoted segment containing a dot survives splitting intact", t, func() {
		escaped := EscapeSegment("a.b")
		dotted := escaped + "." + "c"
		segments := Split(dotted)
		convey.So(len(segments), convey.ShouldEqual, 2)
		convey.So(UnescapeSegment(segments[0]), convey.ShouldEqual, "a.b")
		convey.So(segments[1], convey.ShouldEqual, "c")
	})
}

func TestSameTag(t *testing.T) {
	convey.Convey("two arrays share a tag regardless of contents", t, func() {
		a := &Array{Elems: []Value{Integer(1)}}
		b := &Array{Elems: []Value{String("x")}}
		convey.So(SameTag(a, b), convey.ShouldBeTrue)
		convey.So(SameTag(Integer(1), String("x")), convey.ShouldBeFalse)
	})
}
