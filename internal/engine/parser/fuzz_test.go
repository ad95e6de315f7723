package parser

import (
	"testing"
)

func FuzzParse(f *testing.F) {
	f.Add([]byte(`def main():
    print("hello")
if __name__ == "__main__":
    main()`))
	f.Add([]byte("from mod import a, b,\n\n1+"))
	f.Add([]byte("def f(a: int = (,), *"))
	f.Fuzz(func(t *testing.T, data []byte) {
		parsed := Parse(data)
		defer parsed.Close()

		if parsed.Root() == nil {
			t.Fatal("parse must always produce a tree")
		}
		for _, d := range parsed.Diagnostics {
			if d.Start > d.End || int(d.End) > len(data) {
				t.Fatalf("diagnostic %+v out of range for %d bytes", d, len(data))
			}
		}
	})
}
