package docstore

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFormat(t *testing.T) {
	Convey("Given a raw user document with bookkeeping fields", t, func() {
		raw := map[string]any{
			"name":         "Ada",
			"username":     "ada",
			"createdAt":    time.Now(),
			"lastLoginAt":  time.Now(),
			"loginCount":   7,
			"providerData": []any{map[string]any{"providerId": "password"}},
			"id":           "stale-id",
		}

		rec := Format("user-1", raw)

		Convey("Then the identifier is attached", func() {
			So(rec.ID(), ShouldEqual, "user-1")
		})

		Convey("Then none of the internal fields survive", func() {
			for _, key := range InternalFields {
				_, ok := rec[key]
				So(ok, ShouldBeFalse)
			}
		})

		Convey("Then application fields are kept", func() {
			So(rec.String("name"), ShouldEqual, "Ada")
			So(rec.String("username"), ShouldEqual, "ada")
		})

		Convey("Then the input is not modified", func() {
			So(raw["loginCount"], ShouldEqual, 7)
			So(raw["id"], ShouldEqual, "stale-id")
		})

		Convey("Then formatting again keeps the identifier", func() {
			again := Format(rec.ID(), rec)
			So(again.ID(), ShouldEqual, "user-1")
			So(len(again), ShouldEqual, len(rec))
		})
	})

	Convey("Given inputs that are not keyed objects", t, func() {
		var nilMap map[string]any

		Convey("Then Format returns nil", func() {
			So(Format("x", nil), ShouldBeNil)
			So(Format("x", nilMap), ShouldBeNil)
			So(Format("x", "text"), ShouldBeNil)
			So(Format("x", 42), ShouldBeNil)
			So(Format("x", []any{"a"}), ShouldBeNil)
		})
	})
}

func TestRecordCoercion(t *testing.T) {
	start := time.Date(2025, 3, 1, 18, 30, 0, 0, time.UTC)

	Convey("Given a record with loosely typed fields", t, func() {
		rec := Record{
			"native":   start,
			"rfc3339":  start.Format(time.RFC3339Nano),
			"unix":     float64(start.Unix()),
			"exported": map[string]any{"_seconds": float64(start.Unix()), "_nanoseconds": float64(0)},
			"proto":    map[string]any{"seconds": json.Number("1740853800"), "nanos": 0},
			"garbage":  "next tuesday",
			"rating":   float64(87),
			"huge":     1e300,
			"tiny":     -1e19,
			"nan":      math.NaN(),
			"ratingS":  "42",
			"flag":     false,
			"skills":   map[string]any{"speed": float64(80), "bad": "x"},
			"socials":  map[string]any{"twitter": "@ada", "n": 3},
		}

		Convey("Then every timestamp shape coerces to the same instant", func() {
			So(rec.Time("native").Equal(start), ShouldBeTrue)
			So(rec.Time("rfc3339").Equal(start), ShouldBeTrue)
			So(rec.Time("unix").Equal(start), ShouldBeTrue)
			So(rec.Time("exported").Equal(start), ShouldBeTrue)
			So(rec.Time("proto").Equal(start), ShouldBeTrue)
		})

		Convey("Then unparseable times are zero", func() {
			So(rec.Time("garbage").IsZero(), ShouldBeTrue)
			So(rec.Time("missing").IsZero(), ShouldBeTrue)
		})

		Convey("Then numbers coerce to ints", func() {
			n, ok := rec.Int("rating")
			So(ok, ShouldBeTrue)
			So(n, ShouldEqual, 87)
			n, ok = rec.Int("ratingS")
			So(ok, ShouldBeTrue)
			So(n, ShouldEqual, 42)
		})

		Convey("Then numbers outside the int range are refused", func() {
			_, ok := rec.Int("huge")
			So(ok, ShouldBeFalse)
			_, ok = rec.Int("tiny")
			So(ok, ShouldBeFalse)
			_, ok = rec.Int("nan")
			So(ok, ShouldBeFalse)
		})

		Convey("Then an explicit false is distinguishable from absence", func() {
			v, ok := rec.Bool("flag")
			So(ok, ShouldBeTrue)
			So(v, ShouldBeFalse)
			_, ok = rec.Bool("missing")
			So(ok, ShouldBeFalse)
		})

		Convey("Then typed maps drop entries of the wrong type", func() {
			So(rec.IntMap("skills"), ShouldResemble, map[string]int{"speed": 80})
			So(rec.StringMap("socials"), ShouldResemble, map[string]string{"twitter": "@ada"})
		})
	})
}
