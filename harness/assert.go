package harness

import (
	"os"
	"reflect"
	"regexp"
)

// Assert fails the test with the given reason unless cond holds.
func (t *T) Assert(cond bool, reason string) {
	if !cond {
		t.Fatalf("assertion failed: %s", reason)
	}
}

// AssertEqual fails the test unless a and b are deeply equal.
func (t *T) AssertEqual(a, b any) {
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("assertEqual failed: %#v != %#v", a, b)
	}
}

// AssertNotEqual fails the test if a and b are deeply equal.
func (t *T) AssertNotEqual(a, b any) {
	if reflect.DeepEqual(a, b) {
		t.Fatalf("assertNotEqual failed: %#v == %#v", a, b)
	}
}

// AssertMatch fails the test unless s matches pattern at its start.
func (t *T) AssertMatch(pattern, s string) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		t.Fatalf("bad pattern %q: %v", pattern, err)
	}

	if loc := re.FindStringIndex(s); loc == nil || loc[0] != 0 {
		t.Fatalf("string does not match pattern\n    string: %q\n    pattern: %q", s, pattern)
	}
}

// AssertSearch fails the test unless s contains a match for pattern.
func (t *T) AssertSearch(pattern, s string) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		t.Fatalf("bad pattern %q: %v", pattern, err)
	}

	if !re.MatchString(s) {
		t.Fatalf("string does not contain pattern\n    string: %q\n    pattern: %q", s, pattern)
	}
}

// AssertNoFile fails the test if the given path exists.
func (t *T) AssertNoFile(path string) {
	if _, err := os.Lstat(path); err == nil {
		t.Fatalf("file exists but should not: %s", path)
	}
}
