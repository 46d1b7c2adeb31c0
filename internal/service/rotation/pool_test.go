package rotation

import (
	"errors"
	"testing"

	"github.com/acme/voicedrop/internal/domain"
	apperrors "github.com/acme/voicedrop/pkg/errors"
)

func TestNewPoolRejectsEmpty(t *testing.T) {
	if _, err := NewPool(nil); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestNextRoundRobin(t *testing.T) {
	pool, err := NewPool([]string{"+15550000001", "+15550000002"})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	want := []string{"+15550000001", "+15550000002", "+15550000001", "+15550000002", "+15550000001"}
	for i, expected := range want {
		if got := pool.Next(); got != expected {
			t.Errorf("selection %d = %s, want %s", i, got, expected)
		}
	}
}

func TestNextSingleEntry(t *testing.T) {
	pool, err := NewPool([]string{"+15550000009"})
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	for i := 0; i < 3; i++ {
		if got := pool.Next(); got != "+15550000009" {
			t.Fatalf("selection %d = %s", i, got)
		}
	}
}

func TestFairnessOverLargeBatch(t *testing.T) {
	members := []string{"+15550000001", "+15550000002", "+15550000003"}
	pool, err := NewPool(members)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}

	const batch = 10
	counts := map[string]int{}
	for i := 0; i < batch; i++ {
		counts[pool.Next()]++
	}

	floor := batch / len(members)
	for _, m := range members {
		if counts[m] < floor {
			t.Errorf("member %s selected %d times, want at least %d", m, counts[m], floor)
		}
	}
}

func TestFromProfile(t *testing.T) {
	cases := []struct {
		name    string
		profile domain.TenantCallingProfile
		want    []string
	}{
		{
			name: "pool numbers win",
			profile: domain.TenantCallingProfile{
				DefaultFromNumber: "+15550000001",
				NumberPool:        " +15550000002, +15550000003 ,",
			},
			want: []string{"+15550000002", "+15550000003"},
		},
		{
			name: "empty pool falls back to default",
			profile: domain.TenantCallingProfile{
				DefaultFromNumber: "+15550000001",
			},
			want: []string{"+15550000001"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pool, err := FromProfile(tc.profile)
			if err != nil {
				t.Fatalf("from profile: %v", err)
			}
			if pool.Size() != len(tc.want) {
				t.Fatalf("pool size = %d, want %d", pool.Size(), len(tc.want))
			}
			for i, expected := range tc.want {
				if got := pool.Next(); got != expected {
					t.Errorf("selection %d = %s, want %s", i, got, expected)
				}
			}
		})
	}
}
