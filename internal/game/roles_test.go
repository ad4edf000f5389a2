package game

import "testing"

func TestShuffledRolesMultiset(t *testing.T) {
	for i := 0; i < 1000; i++ {
		roles := ShuffledRoles()
		if len(roles) != PlayerCount {
			t.Fatalf("expected %d roles, got %d", PlayerCount, len(roles))
		}
		counts := make(map[Role]int)
		for _, role := range roles {
			counts[role]++
		}
		if counts[RoleMafia] != 2 || counts[RoleDoctor] != 1 || counts[RolePolice] != 1 || counts[RoleCitizen] != 4 {
			t.Fatalf("wrong role multiset: %v", counts)
		}
	}
}
