package perceptual

import (
	"testing"
	"time"

	"github.com/corona10/goimagehash"

	"winnow/internal/dupe"
)

func phash(bits uint64) *goimagehash.ImageHash {
	return goimagehash.NewImageHash(bits, goimagehash.PHash)
}

func fp(path string, created time.Time, bits ...uint64) Fingerprint {
	hashes := make([]*goimagehash.ImageHash, 0, len(bits))
	for _, b := range bits {
		hashes = append(hashes, phash(b))
	}
	return Fingerprint{
		Record: dupe.FileRecord{Path: path, Size: 1, Created: created},
		Hashes: hashes,
	}
}

func TestDistanceSumsTuplePositions(t *testing.T) {
	now := time.Now()
	a := fp("/a", now, 0b0000, 0b0000, 0b0000)
	b := fp("/b", now, 0b0001, 0b0011, 0b0000)

	d, ok := Distance(a, b)
	if !ok {
		t.Fatal("equal-length tuples must be comparable")
	}
	if d != 3 {
		t.Fatalf("distance = %d, want 3", d)
	}
}

func TestDistanceRejectsUnequalTuples(t *testing.T) {
	now := time.Now()
	img := fp("/img.png", now, 0b0)
	vid := fp("/vid.mp4", now, 0b0, 0b0, 0b0)

	if _, ok := Distance(img, vid); ok {
		t.Fatal("an image tuple must never compare against a video tuple")
	}
	if _, ok := Distance(Fingerprint{}, Fingerprint{}); ok {
		t.Fatal("empty tuples must not be comparable")
	}
}

func TestDistanceRejectsMixedHashKinds(t *testing.T) {
	now := time.Now()
	a := fp("/a", now, 0b0)
	b := Fingerprint{
		Record: dupe.FileRecord{Path: "/b", Created: now},
		Hashes: []*goimagehash.ImageHash{goimagehash.NewImageHash(0, goimagehash.AHash)},
	}
	if _, ok := Distance(a, b); ok {
		t.Fatal("different hash kinds must not be comparable")
	}
}

func TestClusterGreedySingleLinkChains(t *testing.T) {
	base := time.Now()
	// a~b = 2, b~c = 2, a~c = 4. With threshold 2 the chain still
	// collapses into one group because c is linked through b.
	fps := []Fingerprint{
		fp("/pics/a.png", base, 0b0000),
		fp("/pics/b.png", base.Add(time.Minute), 0b0011),
		fp("/pics/c.png", base.Add(2*time.Minute), 0b1111),
	}

	groups := Cluster(fps, 2)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0].Files) != 3 {
		t.Fatalf("group size = %d, want 3 (chain must collapse)", len(groups[0].Files))
	}
	if groups[0].Representative().Path != "/pics/a.png" {
		t.Fatalf("representative = %s, want oldest", groups[0].Representative().Path)
	}
}

func TestClusterThresholdZeroIsExact(t *testing.T) {
	base := time.Now()
	fps := []Fingerprint{
		fp("/x/one.png", base, 0xABCD),
		fp("/x/two.png", base.Add(time.Minute), 0xABCD),
		fp("/x/near.png", base.Add(2*time.Minute), 0xABCC),
	}

	groups := Cluster(fps, 0)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if len(groups[0].Files) != 2 {
		t.Fatalf("group size = %d, want 2 (near miss excluded at threshold 0)", len(groups[0].Files))
	}
}

func TestClusterDropsSingletons(t *testing.T) {
	base := time.Now()
	fps := []Fingerprint{
		fp("/y/alone.png", base, 0x0),
		fp("/y/faraway.png", base, 0xFFFFFFFFFFFFFFFF),
	}
	if groups := Cluster(fps, 3); len(groups) != 0 {
		t.Fatalf("groups = %d, want 0", len(groups))
	}
}

func TestClusterDeterministicAcrossInputOrder(t *testing.T) {
	base := time.Now()
	make3 := func() []Fingerprint {
		return []Fingerprint{
			fp("/z/a.png", base, 0b0000),
			fp("/z/b.png", base.Add(time.Minute), 0b0011),
			fp("/z/c.png", base.Add(2*time.Minute), 0b1111),
		}
	}
	forward := Cluster(make3(), 2)

	reversed := make3()
	reversed[0], reversed[2] = reversed[2], reversed[0]
	backward := Cluster(reversed, 2)

	if len(forward) != len(backward) {
		t.Fatalf("group counts differ: %d vs %d", len(forward), len(backward))
	}
	for i := range forward {
		if forward[i].Representative().Path != backward[i].Representative().Path {
			t.Fatal("clustering must not depend on input order")
		}
		if len(forward[i].Files) != len(backward[i].Files) {
			t.Fatal("group membership must not depend on input order")
		}
	}
}
