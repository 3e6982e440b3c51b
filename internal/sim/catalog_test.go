package sim

import "testing"

func TestDescriptorReturnsIndependentCopies(t *testing.T) {
	first, ok := Descriptor(ObstaclePterodactyl)
	if !ok {
		t.Fatal("missing pterodactyl descriptor")
	}
	first.Hitboxes[0].X = 999
	first.YPositions[0] = 999

	second, _ := Descriptor(ObstaclePterodactyl)
	if second.Hitboxes[0].X == 999 || second.YPositions[0] == 999 {
		t.Fatal("descriptor copies share backing arrays")
	}
}

func TestDescriptorUnknownType(t *testing.T) {
	if _, ok := Descriptor(ObstacleType("meteor")); ok {
		t.Fatal("unknown type should not resolve")
	}
}

func TestCatalogEntriesStableOrder(t *testing.T) {
	entries := CatalogEntries()
	if len(entries) != len(ObstacleTypes) {
		t.Fatalf("expected %d entries, got %d", len(ObstacleTypes), len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Type >= entries[i].Type {
			t.Fatalf("entries not ordered: %s before %s", entries[i-1].Type, entries[i].Type)
		}
	}
}

func TestCatalogFingerprintIsStable(t *testing.T) {
	first, err := CatalogFingerprint()
	if err != nil {
		t.Fatalf("fingerprint failed: %v", err)
	}
	if len(first) != 64 {
		t.Fatalf("expected a sha256 hex digest, got %q", first)
	}
	for i := 0; i < 5; i++ {
		again, err := CatalogFingerprint()
		if err != nil {
			t.Fatalf("fingerprint failed on repeat: %v", err)
		}
		if again != first {
			t.Fatalf("fingerprint drifted between calls: %s != %s", again, first)
		}
	}
}

func TestCatalogFlyingTypeHasPresetHeights(t *testing.T) {
	desc, _ := Descriptor(ObstaclePterodactyl)
	if len(desc.YPositions) < 2 {
		t.Fatal("flying type needs multiple preset heights")
	}
	if desc.MinSpeed <= 0 {
		t.Fatal("flying type should be speed gated")
	}
	if desc.SpeedOffset == 0 {
		t.Fatal("flying type should carry a speed offset")
	}
}
