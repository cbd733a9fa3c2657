package fieldpath_test

import (
	"errors"
	"testing"

	"github.com/goliatone/go-avrocontract/pkg/fieldpath"
)

func TestPathString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		path fieldpath.Path
		want string
	}{
		{fieldpath.Root(), "$"},
		{fieldpath.Root().Field("items").Index(0).Field("id"), "$.items.0.id"},
		{fieldpath.Root().Field("names").Index(1), "$.names.1"},
		{fieldpath.Root().Field("labels").Field("a.b"), "$.labels['a.b']"},
		{fieldpath.Root().Field("labels").Field("42"), "$.labels['42']"},
		{fieldpath.Root().Field("labels").Field("it's"), `$.labels['it\'s']`},
	}

	for _, tc := range cases {
		if got := tc.path.String(); got != tc.want {
			t.Fatalf("String() = %q, want %q", got, tc.want)
		}
		parsed, err := fieldpath.Parse(tc.want)
		if err != nil {
			t.Fatalf("parse %q: %v", tc.want, err)
		}
		if !parsed.Equal(tc.path) {
			t.Fatalf("parse %q = %q, want %q", tc.want, parsed, tc.path)
		}
	}
}

func TestPathImmutable(t *testing.T) {
	t.Parallel()

	base := fieldpath.Root().Field("items")
	a := base.Index(0)
	b := base.Index(1)
	if a.String() != "$.items.0" || b.String() != "$.items.1" {
		t.Fatalf("sibling paths shared storage: %s %s", a, b)
	}
	if !a.Parent().Equal(base) {
		t.Fatalf("parent mismatch: %s", a.Parent())
	}
}

func TestParseRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "items", "$..a", "$['a'", "$[x]", "$#"} {
		if _, err := fieldpath.Parse(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestAccumulatorPopsOnFailure(t *testing.T) {
	t.Parallel()

	acc := fieldpath.NewAccumulator()
	boom := errors.New("boom")
	var seen []string

	err := acc.WithField("items", func() error {
		for i := 0; i < 2; i++ {
			err := acc.WithIndex(i, func() error {
				return acc.WithField("id", func() error {
					seen = append(seen, acc.String())
					if i == 0 {
						return boom
					}
					return nil
				})
			})
			if err != nil && i == 0 {
				continue
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acc.Depth() != 0 {
		t.Fatalf("stack not unwound: %s", acc)
	}
	want := []string{"$.items.0.id", "$.items.1.id"}
	if len(seen) != len(want) || seen[0] != want[0] || seen[1] != want[1] {
		t.Fatalf("seen = %v, want %v", seen, want)
	}
}

func TestAccumulatorPopsOnPanic(t *testing.T) {
	t.Parallel()

	acc := fieldpath.NewAccumulator()
	func() {
		defer func() { _ = recover() }()
		_ = acc.WithField("a", func() error {
			panic("walk")
		})
	}()
	if acc.Depth() != 0 {
		t.Fatalf("stack not unwound after panic: %s", acc)
	}
}
