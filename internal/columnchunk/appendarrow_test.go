package columnchunk

import (
	"testing"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"

	"github.com/loomgraph/loomgraph/internal/common"
)

var arrowPool = memory.NewGoAllocator()

func TestAppendArrowPlainTypes(t *testing.T) {
	t.Run("Int64", func(t *testing.T) {
		b := array.NewInt64Builder(arrowPool)
		b.Append(1)
		b.AppendNull()
		b.Append(3)
		arr := b.NewInt64Array()

		c := Create(common.Primitive(common.INT64), 3).(*PlainColumnChunk)
		n, err := c.AppendArrow(arr, 0)
		if err != nil {
			t.Fatalf("AppendArrow: %v", err)
		}
		if n != 3 {
			t.Fatalf("n = %d, want 3", n)
		}
		if c.GetInt64(0) != 1 || c.GetInt64(2) != 3 {
			t.Errorf("values = (%d, _, %d), want (1, _, 3)", c.GetInt64(0), c.GetInt64(2))
		}
		if !c.nullChunk.IsNull(1) {
			t.Error("pos 1 should be null")
		}
	})

	t.Run("Boolean", func(t *testing.T) {
		b := array.NewBooleanBuilder(arrowPool)
		b.Append(true)
		b.Append(false)
		arr := b.NewBooleanArray()

		c := Create(common.Primitive(common.BOOL), 2).(*PlainColumnChunk)
		if _, err := c.AppendArrow(arr, 0); err != nil {
			t.Fatalf("AppendArrow: %v", err)
		}
		if c.GetBool(0) != true || c.GetBool(1) != false {
			t.Errorf("values = (%v, %v), want (true, false)", c.GetBool(0), c.GetBool(1))
		}
	})

	t.Run("Int16", func(t *testing.T) {
		b := array.NewInt16Builder(arrowPool)
		b.Append(7)
		arr := b.NewInt16Array()

		c := Create(common.Primitive(common.INT16), 1).(*PlainColumnChunk)
		if _, err := c.AppendArrow(arr, 0); err != nil {
			t.Fatalf("AppendArrow: %v", err)
		}
		if c.buffer[0] != 7 {
			t.Errorf("raw byte 0 = %d, want 7", c.buffer[0])
		}
	})

	t.Run("Int32", func(t *testing.T) {
		b := array.NewInt32Builder(arrowPool)
		b.Append(-9)
		arr := b.NewInt32Array()

		c := Create(common.Primitive(common.INT32), 1).(*PlainColumnChunk)
		if _, err := c.AppendArrow(arr, 0); err != nil {
			t.Fatalf("AppendArrow: %v", err)
		}
		if c.GetInt32(0) != -9 {
			t.Errorf("GetInt32(0) = %d, want -9", c.GetInt32(0))
		}
	})

	t.Run("Float32", func(t *testing.T) {
		b := array.NewFloat32Builder(arrowPool)
		b.Append(1.5)
		arr := b.NewFloat32Array()

		c := Create(common.Primitive(common.FLOAT), 1).(*PlainColumnChunk)
		if _, err := c.AppendArrow(arr, 0); err != nil {
			t.Fatalf("AppendArrow: %v", err)
		}
	})

	t.Run("Float64", func(t *testing.T) {
		b := array.NewFloat64Builder(arrowPool)
		b.Append(2.25)
		arr := b.NewFloat64Array()

		c := Create(common.Primitive(common.DOUBLE), 1).(*PlainColumnChunk)
		if _, err := c.AppendArrow(arr, 0); err != nil {
			t.Fatalf("AppendArrow: %v", err)
		}
		if c.GetFloat64(0) != 2.25 {
			t.Errorf("GetFloat64(0) = %v, want 2.25", c.GetFloat64(0))
		}
	})

	t.Run("startPosInChunk offset", func(t *testing.T) {
		b := array.NewInt64Builder(arrowPool)
		b.Append(42)
		arr := b.NewInt64Array()

		c := Create(common.Primitive(common.INT64), 4).(*PlainColumnChunk)
		if _, err := c.AppendArrow(arr, 2); err != nil {
			t.Fatalf("AppendArrow: %v", err)
		}
		if c.GetInt64(2) != 42 {
			t.Errorf("GetInt64(2) = %d, want 42", c.GetInt64(2))
		}
	})
}

// AppendArrow on a non-STRING chunk fed a *array.String source routes each
// value through SetValueFromString, the same per-type parser a CSV cell
// string uses.
func TestAppendArrowStringIntoPlainFallback(t *testing.T) {
	b := array.NewStringBuilder(arrowPool)
	b.Append("10")
	b.AppendNull()
	b.Append("30")
	arr := b.NewStringArray()

	c := Create(common.Primitive(common.INT64), 3).(*PlainColumnChunk)
	n, err := c.AppendArrow(arr, 0)
	if err != nil {
		t.Fatalf("AppendArrow: %v", err)
	}
	if n != 3 {
		t.Fatalf("n = %d, want 3", n)
	}
	if c.GetInt64(0) != 10 || c.GetInt64(2) != 30 {
		t.Errorf("values = (%d, _, %d), want (10, _, 30)", c.GetInt64(0), c.GetInt64(2))
	}
	if !c.nullChunk.IsNull(1) {
		t.Error("pos 1 should be null")
	}
}

// A malformed numeric string surfaces SetValueFromString's error rather
// than being silently dropped.
func TestAppendArrowStringIntoPlainFallbackBadValue(t *testing.T) {
	b := array.NewStringBuilder(arrowPool)
	b.Append("not-a-number")
	arr := b.NewStringArray()

	c := Create(common.Primitive(common.INT64), 1).(*PlainColumnChunk)
	if _, err := c.AppendArrow(arr, 0); err == nil {
		t.Fatal("expected an error parsing a non-numeric string into INT64")
	}
}

func TestAppendArrowStringColumnChunk(t *testing.T) {
	b := array.NewStringBuilder(arrowPool)
	b.Append("hello")
	b.AppendNull()
	b.Append("world")
	arr := b.NewStringArray()

	c := Create(common.Primitive(common.STRING), 3).(*StringColumnChunk)
	n, err := c.AppendArrow(arr, 0)
	if err != nil {
		t.Fatalf("AppendArrow: %v", err)
	}
	if n != 3 {
		t.Fatalf("n = %d, want 3", n)
	}
	if c.GetString(0) != "hello" || c.GetString(2) != "world" {
		t.Errorf("values = (%q, _, %q), want (hello, _, world)", c.GetString(0), c.GetString(2))
	}
	if !c.nullChunk.IsNull(1) {
		t.Error("pos 1 should be null")
	}
}

func TestAppendArrowStringColumnChunkWrongSourceType(t *testing.T) {
	b := array.NewInt64Builder(arrowPool)
	b.Append(1)
	arr := b.NewInt64Array()

	c := Create(common.Primitive(common.STRING), 1).(*StringColumnChunk)
	if _, err := c.AppendArrow(arr, 0); err == nil {
		t.Fatal("expected an error feeding an Int64 array into a STRING chunk")
	}
}

func TestAppendArrowStructColumnChunk(t *testing.T) {
	dtype := arrow.StructOf(
		arrow.Field{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		arrow.Field{Name: "name", Type: arrow.BinaryTypes.String},
	)
	sb := array.NewStructBuilder(arrowPool, dtype)
	sb.Append(true)
	sb.FieldBuilder(0).(*array.Int64Builder).Append(1)
	sb.FieldBuilder(1).(*array.StringBuilder).Append("alice")
	sb.AppendNull()
	sb.FieldBuilder(0).(*array.Int64Builder).AppendNull()
	sb.FieldBuilder(1).(*array.StringBuilder).AppendNull()
	arr := sb.NewStructArray()

	structType := common.Struct(
		common.StructField{Name: "id", Type: common.Primitive(common.INT64)},
		common.StructField{Name: "name", Type: common.Primitive(common.STRING)},
	)
	c := Create(structType, 2).(*StructColumnChunk)
	n, err := c.AppendArrow(arr, 0)
	if err != nil {
		t.Fatalf("AppendArrow: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}

	idChunk := c.FieldChunk("id").(*PlainColumnChunk)
	nameChunk := c.FieldChunk("name").(*StringColumnChunk)
	if idChunk.GetInt64(0) != 1 || nameChunk.GetString(0) != "alice" {
		t.Errorf("row 0 = (%d, %q), want (1, alice)", idChunk.GetInt64(0), nameChunk.GetString(0))
	}
	if !c.nullChunk.IsNull(1) {
		t.Error("row 1 should be null at the struct level")
	}
}

func TestAppendArrowVarListColumnChunk(t *testing.T) {
	lb := array.NewListBuilder(arrowPool, arrow.PrimitiveTypes.Int64)
	vb := lb.ValueBuilder().(*array.Int64Builder)

	lb.Append(true)
	vb.Append(1)
	vb.Append(2)
	vb.Append(3)

	lb.AppendNull()

	lb.Append(true)
	vb.Append(9)

	arr := lb.NewListArray()

	listType := common.VarList(common.Primitive(common.INT64))
	c := Create(listType, 3).(*VarListColumnChunk)
	n, err := c.AppendArrow(arr, 0)
	if err != nil {
		t.Fatalf("AppendArrow: %v", err)
	}
	if n != 3 {
		t.Fatalf("n = %d, want 3", n)
	}

	elems := c.ElementChunk().(*PlainColumnChunk)
	start, end := c.Bounds(0)
	if end-start != 3 {
		t.Fatalf("row 0 has %d elements, want 3", end-start)
	}
	if elems.GetInt64(int(start)) != 1 || elems.GetInt64(int(start)+2) != 3 {
		t.Errorf("row 0 elements = (%d, _, %d), want (1, _, 3)", elems.GetInt64(int(start)), elems.GetInt64(int(start)+2))
	}
	if !c.nullChunk.IsNull(1) {
		t.Error("row 1 should be null")
	}
	start2, end2 := c.Bounds(2)
	if end2-start2 != 1 || elems.GetInt64(int(start2)) != 9 {
		t.Errorf("row 2 elements wrong: start=%d end=%d", start2, end2)
	}
}

// FIXED_LIST chunks are deliberately not populated from Arrow source
// arrays - they parse the "{v1,v2,...}" CSV syntax directly via
// WriteFromString, so AppendArrow must report that rather than silently
// doing nothing.
func TestAppendArrowFixedListUnsupported(t *testing.T) {
	ft := common.FixedList(common.Primitive(common.INT32), 2)
	c := Create(ft, 1).(*FixedListColumnChunk)

	b := array.NewInt32Builder(arrowPool)
	b.Append(1)
	arr := b.NewInt32Array()

	if _, err := c.AppendArrow(arr, 0); err == nil {
		t.Fatal("expected FIXED_LIST AppendArrow to report it is unsupported")
	}
}
