package kernel

import "testing"

type retryCfg struct {
	MaxAttempts int
	Backoff     string
}

func TestTagWithMergesOverDefault(t *testing.T) {
	retryable := NewTag[retryCfg]("tag.retryable", retryCfg{MaxAttempts: 3, Backoff: "fixed"})

	usage := retryable.With(retryCfg{MaxAttempts: 5})
	cfg, ok := retryable.Extract([]TagUsage{usage})
	if !ok {
		t.Fatal("expected Extract to find the usage")
	}
	if cfg.MaxAttempts != 5 {
		t.Fatalf("expected override MaxAttempts 5, got %d", cfg.MaxAttempts)
	}
	if cfg.Backoff != "fixed" {
		t.Fatalf("expected default Backoff to survive the merge, got %q", cfg.Backoff)
	}
}

func TestTagBareIsPresentButUnconfigured(t *testing.T) {
	feature := NewTag[struct{}]("tag.feature")
	usage := feature.Bare()

	if !feature.Exists([]TagUsage{usage}) {
		t.Fatal("expected bare usage to report Exists == true")
	}
	if _, ok := feature.Extract([]TagUsage{usage}); ok {
		t.Fatal("expected Extract on a bare usage to report ok == false")
	}
}

func TestTagExtractReturnsFirstMatchInOrder(t *testing.T) {
	level := NewTag[int]("tag.level")
	usages := []TagUsage{level.With(1), level.With(2)}

	cfg, ok := level.Extract(usages)
	if !ok || cfg != 1 {
		t.Fatalf("expected the first usage (1), got (%d, %v)", cfg, ok)
	}
}

func TestTagExistsFalseWhenAbsent(t *testing.T) {
	level := NewTag[int]("tag.level")
	other := NewTag[int]("tag.other")
	if level.Exists([]TagUsage{other.With(1)}) {
		t.Fatal("expected Exists == false for an unrelated tag")
	}
}
