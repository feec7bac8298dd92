package keystore

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"
)

func TestAddKeyRejectsDuplicate(t *testing.T) {
	convey.Convey("the same leaf key cannot be bound twice", t, func() {
		s := New()
		convey.So(s.AddKey("dup"), convey.ShouldBeNil)
		convey.So(s.AddKey("dup"), convey.ShouldNotBeNil)
	})
}

func TestAddTableKeyRejectsDuplicateHeader(t *testing.T) {
	convey.Convey("a duplicate table header is rejected", t, func() {
		s := New()
		convey.So(s.AddTableKey("a"), convey.ShouldBeNil)
		convey.So(s.AddTableKey("a"), convey.ShouldNotBeNil)
	})
}

func TestTableThenNestedTableScoping(t *testing.T) {
	convey.Convey("a nested table header scopes leaf keys under both segments", t, func() {
		s := New()
		convey.So(s.AddTableKey("a"), convey.ShouldBeNil)
		convey.So(s.AddKey("x"), convey.ShouldBeNil)
		convey.So(s.AddTableKey("a.b"), convey.ShouldBeNil)
		convey.So(s.CurrentPrefix("y"), convey.ShouldEqual, "a.b.y")
	})
}

func TestArrayOfTablesVsPlainTableConflict(t *testing.T) {
	convey.Convey("an array-of-tables name cannot later be a plain table", t, func() {
		s := New()
		convey.So(s.AddArrayTableKey("a"), convey.ShouldBeNil)
		convey.So(s.AddTableKey("a"), convey.ShouldNotBeNil)
	})

	convey.Convey("a plain table name cannot later be an array-of-tables", t, func() {
		s := New()
		convey.So(s.AddTableKey("a"), convey.ShouldBeNil)
		convey.So(s.AddArrayTableKey("a"), convey.ShouldNotBeNil)
	})
}

func TestImplicitArrayParentConflict(t *testing.T) {
	convey.Convey("[[a.b]] then [[a]] fails because a is an implicit parent", t, func() {
		s := New()
		convey.So(s.AddArrayTableKey("a.b"), convey.ShouldBeNil)
		convey.So(s.AddArrayTableKey("a"), convey.ShouldNotBeNil)
	})
}

func TestArrayOfTablesThenNestedVarietyThenArrayOfTablesAgain(t *testing.T) {
	convey.Convey("[[fruit]], [[fruit.variety]], then [[fruit]] again all succeed", t, func() {
		s := New()
		convey.So(s.AddArrayTableKey("fruit"), convey.ShouldBeNil)
		convey.So(s.AddArrayTableKey("fruit.variety"), convey.ShouldBeNil)
		convey.So(s.AddArrayTableKey("fruit"), convey.ShouldBeNil)
		convey.So(s.CurrentPrefix("name"), convey.ShouldEqual, "fruit1.name")
	})
}

func TestArrayOfTablesIndexIncrements(t *testing.T) {
	convey.Convey("repeated [[fruit]] headers advance the index and the leaf scope", t, func() {
		s := New()
		convey.So(s.AddArrayTableKey("fruit"), convey.ShouldBeNil)
		convey.So(s.AddKey("name"), convey.ShouldBeNil)
		convey.So(s.CurrentPrefix("name"), convey.ShouldEqual, "fruit0.name")

		convey.So(s.AddArrayTableKey("fruit"), convey.ShouldBeNil)
		convey.So(s.CurrentPrefix("name"), convey.ShouldEqual, "fruit1.name")
		convey.So(s.AddKey("name"), convey.ShouldBeNil)
	})
}

func TestPushInlineScopeNamespacesDistinctInlineTables(t *testing.T) {
	convey.Convey("two inline tables sharing a field name at the same scope don't collide", t, func() {
		s := New()
		convey.So(s.AddInlineTableKey("point1"), convey.ShouldBeNil)
		s.PushInlineScope("point1")
		convey.So(s.AddKey("x"), convey.ShouldBeNil)
		s.PopInlineScope()

		convey.So(s.AddInlineTableKey("point2"), convey.ShouldBeNil)
		s.PushInlineScope("point2")
		convey.So(s.AddKey("x"), convey.ShouldBeNil)
		s.PopInlineScope()
	})
}

func TestPushInlineScopeRestoresArrayOfTableScope(t *testing.T) {
	convey.Convey("popping an inline scope restores the enclosing array-of-tables element", t, func() {
		s := New()
		convey.So(s.AddArrayTableKey("arr"), convey.ShouldBeNil)
		convey.So(s.AddInlineTableKey("p"), convey.ShouldBeNil)
		s.PushInlineScope("p")
		convey.So(s.CurrentPrefix("x"), convey.ShouldEqual, "arr0.p.x")
		convey.So(s.AddKey("x"), convey.ShouldBeNil)
		s.PopInlineScope()
		convey.So(s.CurrentPrefix("name"), convey.ShouldEqual, "arr0.name")
	})
}

func TestIsRegisteredPredicates(t *testing.T) {
	convey.Convey("registration predicates reflect prior declarations", t, func() {
		s := New()
		s.AddArrayTableKey("a.b")
		convey.So(s.IsRegisteredAsArrayTable("a.b"), convey.ShouldBeTrue)
		convey.So(s.IsTableImplicitFromArrayTable("a"), convey.ShouldBeTrue)
		convey.So(s.IsRegisteredAsTable("a.b"), convey.ShouldBeFalse)
	})
}
