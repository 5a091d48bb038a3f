package repartitioner

import (
	"errors"
	"testing"
	"time"

	"github.com/Siyun/carbondata/schema"
)

func TestRangeAssignBytes(t *testing.T) {
	info := schema.PartitionInfo{
		ColumnName:  "region",
		Type:        schema.PartitionTypeRange,
		RangeBounds: []string{"g", "p"},
	}

	cases := map[string]int{
		"east":  0,
		"north": 1,
		"west":  2,
	}
	for val, expected := range cases {
		bucket, err := Assign([]byte(val), schema.DataTypeString, info)
		if err != nil {
			t.Fatal(err)
		}
		if bucket != expected {
			t.Fatalf("%s: expected bucket %d, got %d", val, expected, bucket)
		}
	}

	if BucketCount(info) != 3 {
		t.Fatalf("expected 3 buckets, got %d", BucketCount(info))
	}
}

func TestRangeAssignInt(t *testing.T) {
	info := schema.PartitionInfo{
		ColumnName:  "amount",
		Type:        schema.PartitionTypeRange,
		RangeBounds: []string{"100", "1000"},
	}

	bucket, err := Assign(int64(99), schema.DataTypeLong, info)
	if err != nil {
		t.Fatal(err)
	}
	if bucket != 0 {
		t.Fatalf("expected bucket 0, got %d", bucket)
	}

	bucket, err = Assign(int64(100), schema.DataTypeLong, info)
	if err != nil {
		t.Fatal(err)
	}
	if bucket != 1 {
		t.Fatalf("upper bound is exclusive, expected bucket 1, got %d", bucket)
	}
}

func TestRangeAssignTime(t *testing.T) {
	info := schema.PartitionInfo{
		ColumnName:  "eventDate",
		Type:        schema.PartitionTypeRange,
		RangeBounds: []string{"2022-06-01"},
	}

	bucket, err := Assign(time.Date(2022, 1, 5, 0, 0, 0, 0, time.UTC), schema.DataTypeDate, info)
	if err != nil {
		t.Fatal(err)
	}
	if bucket != 0 {
		t.Fatalf("expected bucket 0, got %d", bucket)
	}

	bucket, err = Assign(time.Date(2022, 12, 30, 0, 0, 0, 0, time.UTC), schema.DataTypeDate, info)
	if err != nil {
		t.Fatal(err)
	}
	if bucket != 1 {
		t.Fatalf("expected overflow bucket 1, got %d", bucket)
	}
}

func TestRangeBadBound(t *testing.T) {
	info := schema.PartitionInfo{
		ColumnName:  "amount",
		Type:        schema.PartitionTypeRange,
		RangeBounds: []string{"not-a-number"},
	}

	_, err := Assign(int64(1), schema.DataTypeLong, info)
	if !errors.Is(err, ErrBadBound) {
		t.Fatalf("expected ErrBadBound, got %v", err)
	}
}

func TestListAssign(t *testing.T) {
	info := schema.PartitionInfo{
		ColumnName: "region",
		Type:       schema.PartitionTypeList,
		ListValues: [][]string{{"east", "north"}, {"west"}},
	}

	bucket, err := Assign("west", schema.DataTypeString, info)
	if err != nil {
		t.Fatal(err)
	}
	if bucket != 1 {
		t.Fatalf("expected bucket 1, got %d", bucket)
	}

	// unmatched values land in the default bucket
	bucket, err = Assign("south", schema.DataTypeString, info)
	if err != nil {
		t.Fatal(err)
	}
	if bucket != 2 {
		t.Fatalf("expected default bucket 2, got %d", bucket)
	}
}

func TestHashAssignStable(t *testing.T) {
	info := schema.PartitionInfo{
		ColumnName:  "city",
		Type:        schema.PartitionTypeHash,
		HashBuckets: 8,
	}

	a, err := Assign("lisbon", schema.DataTypeString, info)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Assign("lisbon", schema.DataTypeString, info)
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Fatal("hash assignment is not stable")
	}
	if a < 0 || a >= 8 {
		t.Fatalf("bucket %d out of range", a)
	}

	// raw bytes and text of the same value hash identically
	c, err := Assign([]byte("lisbon"), schema.DataTypeString, info)
	if err != nil {
		t.Fatal(err)
	}
	if c != a {
		t.Fatalf("bytes and string hash to different buckets: %d vs %d", c, a)
	}
}

func TestUnknownPartitionType(t *testing.T) {
	_, err := Assign("x", schema.DataTypeString, schema.PartitionInfo{Type: "WAT"})
	if !errors.Is(err, ErrUnknownPartitionType) {
		t.Fatalf("expected ErrUnknownPartitionType, got %v", err)
	}
}

func TestBucketName(t *testing.T) {
	info := schema.PartitionInfo{ColumnName: "region", Type: schema.PartitionTypeHash, HashBuckets: 2}
	if BucketName(info, 1) != "region=b1" {
		t.Fatalf("unexpected bucket name %s", BucketName(info, 1))
	}
}
